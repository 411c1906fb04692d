package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/roomstate/internal/event"
)

// maxBatch bounds the number of parameters in one IN query; SQLite
// defaults to 999 host parameters.
const maxBatch = 500

// unavailable wraps err as ErrUnavailable when the caller's context ended,
// so an interrupted read is not mistaken for a broken store.
func unavailable(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return err
}

// Event implements Fetcher.
func (s *Store) Event(ctx context.Context, id string) (*event.Event, error) {
	var raw string
	var rejected bool
	err := s.db.QueryRowContext(ctx, `
		SELECT raw, rejected FROM events WHERE event_id = ?
	`, id).Scan(&raw, &rejected)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, unavailable(ctx, fmt.Errorf("read event %s: %w", id, err))
	}
	return unmarshalEvent(raw, rejected)
}

// Events implements Fetcher. Identifiers are looked up in chunks; unknown
// identifiers are absent from the result.
func (s *Store) Events(ctx context.Context, ids []string) (map[string]*event.Event, error) {
	out := make(map[string]*event.Event, len(ids))
	for start := 0; start < len(ids); start += maxBatch {
		end := min(start+maxBatch, len(ids))
		if err := s.readChunk(ctx, ids[start:end], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) readChunk(ctx context.Context, ids []string, out map[string]*event.Event) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := `SELECT raw, rejected FROM events WHERE event_id IN (` + placeholders(len(ids)) + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return unavailable(ctx, fmt.Errorf("query events: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return err
		}
		out[ev.ID] = ev
	}
	if err := rows.Err(); err != nil {
		return unavailable(ctx, fmt.Errorf("iterate events: %w", err))
	}
	return nil
}

// RoomEvents returns every stored event of a room in arrival order.
// Returns an empty slice (not nil) if the room has no events.
func (s *Store) RoomEvents(ctx context.Context, roomID string) ([]*event.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT raw, rejected FROM events
		WHERE room_id = ?
		ORDER BY seq ASC
	`, roomID)
	if err != nil {
		return nil, unavailable(ctx, fmt.Errorf("query room events: %w", err))
	}
	defer rows.Close()

	evs := []*event.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		evs = append(evs, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(ctx, fmt.Errorf("iterate room events: %w", err))
	}
	return evs, nil
}

// AuthChainIDs returns the identifiers reachable from ids over auth edges,
// including ids themselves, sorted. The walk is one recursive query; targets
// the store has never seen are included since the edge names them.
func (s *Store) AuthChainIDs(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE chain(id) AS (
			SELECT column1 FROM (VALUES `+valuesList(len(ids))+`)
			UNION
			SELECT e.target_id FROM event_edges e
			JOIN chain c ON e.event_id = c.id
			WHERE e.kind = 'auth'
		)
		SELECT id FROM chain ORDER BY id COLLATE BINARY ASC
	`, args...)
	if err != nil {
		return nil, unavailable(ctx, fmt.Errorf("query auth chain: %w", err))
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan auth chain: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(ctx, fmt.Errorf("iterate auth chain: %w", err))
	}
	return out, nil
}

// rowScanner abstracts sql.Row and sql.Rows for scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*event.Event, error) {
	var raw string
	var rejected bool
	if err := row.Scan(&raw, &rejected); err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return unmarshalEvent(raw, rejected)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func valuesList(n int) string {
	return strings.TrimSuffix(strings.Repeat("(?),", n), ",")
}
