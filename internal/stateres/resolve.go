package stateres

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/roomstate/internal/event"
	"github.com/roach88/roomstate/internal/roomversion"
	"github.com/roach88/roomstate/internal/store"
)

const tracerName = "github.com/roach88/roomstate/internal/stateres"

// RunIDGenerator generates identifiers that correlate the logs, spans and
// snapshots of one resolution call.
// Implemented by UUIDv7Generator (production) and testutil.FixedRunIDs (tests).
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs.
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Stats counts what one resolution call did.
type Stats struct {
	Inputs         int              `json:"inputs"`
	Unconflicted   int              `json:"unconflicted"`
	Conflicted     int              `json:"conflicted"`
	AuthDifference int              `json:"auth_difference"`
	FullConflicted int              `json:"full_conflicted"`
	PowerEvents    int              `json:"power_events"`
	Mainline       int              `json:"mainline"`
	Released       int              `json:"released"`
	Fetch          store.CacheStats `json:"fetch"`
}

// Result is the outcome of a resolution call.
type Result struct {
	State    event.StateMap
	Rejected []string // sorted ids dropped by either pass
	Stats    Stats
	RunID    string
}

// Resolver carries the ambient configuration of resolution calls. The zero
// value is not usable; create one with New. A Resolver holds no per-call
// state and may be shared between goroutines.
type Resolver struct {
	logger *slog.Logger
	tracer trace.Tracer
	runIDs RunIDGenerator
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = l
	}
}

// WithTracer sets the tracer. Default: the global otel tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(r *Resolver) {
		r.tracer = t
	}
}

// WithRunIDGenerator sets the run ID source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(r *Resolver) {
		r.runIDs = g
	}
}

// New creates a Resolver.
func New(opts ...Option) *Resolver {
	r := &Resolver{}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer(tracerName)
	}
	if r.runIDs == nil {
		r.runIDs = UUIDv7Generator{}
	}
	return r
}

// Resolve resolves stateMaps with a Resolver configured by opts.
func Resolve(ctx context.Context, rules roomversion.AuthRules, stateMaps []event.StateMap, f store.Fetcher, opts ...Option) (*Result, error) {
	return New(opts...).Resolve(ctx, rules, stateMaps, f)
}

// run is the state of one resolution call.
type run struct {
	rules    roomversion.AuthRules
	fetch    *store.Cache
	logger   *slog.Logger
	rejected map[string]struct{}
}

// Resolve merges stateMaps, the state of a room at each fork, into one
// StateMap under rules.
//
// Absent events (store.ErrNotFound, store.ErrUnavailable) never fail the
// call: an event whose auth events cannot all be fetched is rejected. Any
// other fetch error aborts with ErrCodeStoreFailure, and a done ctx aborts
// with ErrCodeCancelled. No partial result is returned on error.
func (r *Resolver) Resolve(ctx context.Context, rules roomversion.AuthRules, stateMaps []event.StateMap, f store.Fetcher) (*Result, error) {
	runID := r.runIDs.Generate()
	ctx, span := r.tracer.Start(ctx, "stateres.Resolve", trace.WithAttributes(
		attribute.String("roomstate.run_id", runID),
		attribute.String("roomstate.room_version", rules.Version),
		attribute.Int("roomstate.inputs", len(stateMaps)),
	))
	defer span.End()

	res, err := r.resolve(ctx, runID, rules, stateMaps, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(CodeOf(err)))
		r.logger.Error("state resolution failed",
			slog.String("run_id", runID),
			slog.String("code", string(CodeOf(err))),
			slog.Any("error", err))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("roomstate.conflicted", res.Stats.Conflicted),
		attribute.Int("roomstate.rejected", len(res.Rejected)),
	)
	r.logger.Info("state resolved",
		slog.String("run_id", runID),
		slog.Int("inputs", res.Stats.Inputs),
		slog.Int("conflicted", res.Stats.Conflicted),
		slog.Int("full_conflicted", res.Stats.FullConflicted),
		slog.Int("rejected", len(res.Rejected)),
		slog.Int("state_size", len(res.State)))
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, runID string, rules roomversion.AuthRules, stateMaps []event.StateMap, f store.Fetcher) (*Result, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	ru := &run{
		rules:    rules,
		fetch:    store.NewCache(f),
		logger:   r.logger.With(slog.String("run_id", runID)),
		rejected: map[string]struct{}{},
	}
	res := &Result{RunID: runID, Rejected: []string{}}
	res.Stats.Inputs = len(stateMaps)

	unconflicted, conflicted := SplitConflicted(stateMaps)
	res.Stats.Unconflicted = len(unconflicted)
	res.Stats.Conflicted = len(conflicted)
	if len(conflicted) == 0 {
		res.State = unconflicted
		res.Stats.Fetch = ru.fetch.Stats()
		return res, nil
	}

	full, diffSize, err := r.fullConflictedSet(ctx, ru, stateMaps, conflicted)
	if err != nil {
		return nil, err
	}
	res.Stats.AuthDifference = diffSize
	res.Stats.FullConflicted = len(full)

	// Power events first, on top of the unconflicted state.
	powerCtx, powerSpan := r.tracer.Start(ctx, "stateres.power_events")
	graph := powerGraph(full)
	sorted, released, err := ReverseTopologicalPowerSort(powerCtx, rules, graph, ru.fetch)
	if err != nil {
		powerSpan.End()
		return nil, err
	}
	if len(released) > 0 {
		ru.logger.Warn("auth graph has a cycle",
			slog.String("code", string(ErrCodeCycleDetected)),
			slog.Any("released", released),
			slog.Any("cycles", Cycles(graph)))
	}
	resolved, err := ru.iterativeAuthCheck(powerCtx, sorted, unconflicted)
	powerSpan.SetAttributes(attribute.Int("roomstate.power_events", len(sorted)))
	powerSpan.End()
	if err != nil {
		return nil, err
	}
	res.Stats.PowerEvents = len(sorted)
	res.Stats.Released = len(released)

	// Everything else, ordered along the power levels mainline.
	mainCtx, mainSpan := r.tracer.Start(ctx, "stateres.mainline")
	inPower := make(map[string]struct{}, len(sorted))
	for _, id := range sorted {
		inPower[id] = struct{}{}
	}
	var rest []string
	for _, id := range slices.Sorted(maps.Keys(full)) {
		if _, ok := inPower[id]; !ok {
			rest = append(rest, id)
		}
	}
	ordered, mainlineLen, err := ru.mainlineSort(mainCtx, rest, resolved[event.Key(event.TypePowerLevels, "")])
	if err == nil {
		resolved, err = ru.iterativeAuthCheck(mainCtx, ordered, resolved)
	}
	mainSpan.SetAttributes(attribute.Int("roomstate.mainline", mainlineLen))
	mainSpan.End()
	if err != nil {
		return nil, err
	}
	res.Stats.Mainline = mainlineLen

	maps.Copy(resolved, unconflicted)

	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	res.State = resolved
	res.Rejected = slices.Sorted(maps.Keys(ru.rejected))
	res.Stats.Fetch = ru.fetch.Stats()
	return res, nil
}

// fullConflictedSet returns the fetchable events of the auth difference and
// the conflicted slots, keyed by ID, plus the size of the auth difference.
func (r *Resolver) fullConflictedSet(ctx context.Context, ru *run, stateMaps []event.StateMap, conflicted map[event.StateKey][]string) (map[string]*event.Event, int, error) {
	ctx, span := r.tracer.Start(ctx, "stateres.auth_difference")
	defer span.End()

	diff, err := AuthDifference(ctx, ru.fetch, stateMaps)
	if err != nil {
		return nil, 0, err
	}
	ids := append(slices.Clone(diff), conflictedIDs(conflicted)...)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	full, err := fetchEvents(ctx, ru.fetch, ids)
	if err != nil {
		return nil, 0, err
	}
	for _, id := range ids {
		if _, ok := full[id]; !ok {
			ru.logger.Debug("conflicted event not available", slog.String("event_id", id))
		}
	}
	span.SetAttributes(
		attribute.Int("roomstate.auth_difference", len(diff)),
		attribute.Int("roomstate.full_conflicted", len(full)),
	)
	return full, len(diff), nil
}
