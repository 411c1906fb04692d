package stateres

import (
	"context"
	"log/slog"

	"github.com/roach88/roomstate/internal/auth"
	"github.com/roach88/roomstate/internal/event"
)

// iterativeAuthCheck authorizes ids in order on top of state and returns the
// resulting map. Each allowed event takes its slot; each rejected event is
// recorded in r.rejected and leaves state untouched. state is not modified.
func (r *run) iterativeAuthCheck(ctx context.Context, ids []string, state event.StateMap) (event.StateMap, error) {
	out := state.Clone()
	for _, id := range ids {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}
		ev, err := fetchEvent(ctx, r.fetch, id)
		if err != nil {
			return nil, err
		}
		if ev == nil {
			r.reject(id, auth.CodeInvalidAuthEvents, "event not available")
			continue
		}
		key, ok := ev.Key()
		if !ok {
			return nil, &Error{Code: ErrCodeMissingStateKey, Message: "conflicted event has no state key", EventID: id}
		}
		if ev.Rejected {
			r.reject(id, auth.CodeInvalidAuthEvents, "rejected on receipt")
			continue
		}

		authMap, complete, err := r.authMap(ctx, ev)
		if err != nil {
			return nil, err
		}
		if !complete {
			r.reject(id, auth.CodeInvalidAuthEvents, "auth events not available")
			continue
		}

		types, err := auth.AuthTypes(r.rules, ev)
		if err != nil {
			r.rejectErr(id, err)
			continue
		}
		for _, k := range types {
			sid, ok := out[k]
			if !ok {
				continue
			}
			sev, err := fetchEvent(ctx, r.fetch, sid)
			if err != nil {
				return nil, err
			}
			if sev != nil && !sev.Rejected {
				authMap[k] = sev
			}
		}

		if err := auth.CheckStateDependent(r.rules, ev, auth.MapLookup(authMap)); err != nil {
			r.rejectErr(id, err)
			continue
		}
		out[key] = id
	}
	return out, nil
}

// authMap indexes the auth events of ev by slot, skipping events rejected
// on receipt. Events rejected earlier in this run still count here; the
// current-state overlay decides whether they are superseded.
// complete is false when some listed auth event cannot be fetched.
func (r *run) authMap(ctx context.Context, ev *event.Event) (m map[event.StateKey]*event.Event, complete bool, err error) {
	evs, err := fetchEvents(ctx, r.fetch, ev.AuthEvents)
	if err != nil {
		return nil, false, err
	}
	m = make(map[event.StateKey]*event.Event, len(ev.AuthEvents))
	for _, aid := range ev.AuthEvents {
		aev, ok := evs[aid]
		if !ok {
			return nil, false, nil
		}
		if aev.Rejected {
			continue
		}
		if k, ok := aev.Key(); ok {
			m[k] = aev
		}
	}
	return m, true, nil
}

func (r *run) reject(id string, code auth.Code, msg string) {
	r.rejected[id] = struct{}{}
	r.logger.Debug("event rejected",
		slog.String("event_id", id),
		slog.String("code", string(code)),
		slog.String("reason", msg))
}

func (r *run) rejectErr(id string, err error) {
	code := auth.CodeOf(err)
	if code == "" {
		code = auth.CodeMalformedContent
	}
	r.reject(id, code, err.Error())
}
