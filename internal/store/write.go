package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/roomstate/internal/event"
)

// WriteEvent inserts one event and its edges.
// Uses ON CONFLICT(event_id) DO NOTHING for idempotency - duplicate IDs are
// silently ignored, including their edges and rejected flag.
func (s *Store) WriteEvent(ctx context.Context, ev *event.Event) error {
	return s.WriteEvents(ctx, []*event.Event{ev})
}

// WriteEvents inserts events and their edges in one transaction.
// Returns the first error; on error nothing is written.
func (s *Store) WriteEvents(ctx context.Context, evs []*event.Event) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write events: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, ev := range evs {
		if err := writeEventTx(ctx, tx, ev); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write events: commit: %w", err)
	}
	return nil
}

func writeEventTx(ctx context.Context, tx *sql.Tx, ev *event.Event) error {
	if ev.ID == "" {
		return fmt.Errorf("write event: empty event id")
	}
	raw, err := marshalEvent(ev)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO events
		(event_id, room_id, type, state_key, sender, origin_server_ts, content, rejected, raw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO NOTHING
	`,
		ev.ID,
		ev.RoomID,
		ev.Type,
		nullableStateKey(ev),
		ev.Sender,
		ev.OriginServerTS,
		marshalContent(ev),
		ev.Rejected,
		raw,
	)
	if err != nil {
		return fmt.Errorf("write event %s: %w", ev.ID, err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("write event %s: rows affected: %w", ev.ID, err)
	}
	if inserted == 0 {
		return nil
	}

	edges := []struct {
		kind string
		ids  []string
	}{
		{"auth", ev.AuthEvents},
		{"prev", ev.PrevEvents},
	}
	for _, e := range edges {
		for pos, target := range e.ids {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO event_edges (event_id, kind, position, target_id)
				VALUES (?, ?, ?, ?)
			`, ev.ID, e.kind, pos, target)
			if err != nil {
				return fmt.Errorf("write %s edge %s -> %s: %w", e.kind, ev.ID, target, err)
			}
		}
	}
	return nil
}

// MarkRejected sets the local rejected flag of a stored event.
// Returns ErrNotFound if the event is not stored.
func (s *Store) MarkRejected(ctx context.Context, id string, rejected bool) error {
	result, err := s.db.ExecContext(ctx, `UPDATE events SET rejected = ? WHERE event_id = ?`, rejected, id)
	if err != nil {
		return fmt.Errorf("mark rejected %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark rejected %s: rows affected: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("mark rejected: %w: %s", ErrNotFound, id)
	}
	return nil
}
