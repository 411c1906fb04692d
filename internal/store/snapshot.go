package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/roomstate/internal/event"
)

// Snapshot is one recorded resolution result.
type Snapshot struct {
	Seq    int64
	RoomID string
	Hash   string
	RunID  string
	State  event.StateMap
}

// WriteSnapshot records that roomID reached state and returns the state's
// hash. Entries are stored once per hash; the snapshot row is always
// appended so the latest snapshot reflects the most recent write.
func (s *Store) WriteSnapshot(ctx context.Context, roomID, runID string, state event.StateMap) (string, error) {
	hash := state.Hash()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("write snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, entry := range state.Entries() {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO state_entries (state_hash, type, state_key, event_id)
			VALUES (?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, hash, entry.Type, entry.StateKey, entry.EventID)
		if err != nil {
			return "", fmt.Errorf("write snapshot entry %s|%s: %w", entry.Type, entry.StateKey, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO state_snapshots (room_id, state_hash, run_id)
		VALUES (?, ?, ?)
	`, roomID, hash, runID)
	if err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("write snapshot: commit: %w", err)
	}
	return hash, nil
}

// ReadSnapshot returns the state stored under hash.
// Returns ErrNotFound if no snapshot was ever recorded with that hash.
func (s *Store) ReadSnapshot(ctx context.Context, hash string) (event.StateMap, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM state_snapshots WHERE state_hash = ? LIMIT 1
	`, hash).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: snapshot %s", ErrNotFound, hash)
	}
	if err != nil {
		return nil, unavailable(ctx, fmt.Errorf("read snapshot %s: %w", hash, err))
	}
	return s.readEntries(ctx, hash)
}

// LatestSnapshot returns the most recently written snapshot of a room.
// Returns ErrNotFound if the room has none.
func (s *Store) LatestSnapshot(ctx context.Context, roomID string) (Snapshot, error) {
	snap := Snapshot{RoomID: roomID}
	err := s.db.QueryRowContext(ctx, `
		SELECT seq, state_hash, run_id FROM state_snapshots
		WHERE room_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, roomID).Scan(&snap.Seq, &snap.Hash, &snap.RunID)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: no snapshot for room %s", ErrNotFound, roomID)
	}
	if err != nil {
		return Snapshot{}, unavailable(ctx, fmt.Errorf("latest snapshot %s: %w", roomID, err))
	}

	snap.State, err = s.readEntries(ctx, snap.Hash)
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *Store) readEntries(ctx context.Context, hash string) (event.StateMap, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type, state_key, event_id FROM state_entries
		WHERE state_hash = ?
		ORDER BY type COLLATE BINARY ASC, state_key COLLATE BINARY ASC
	`, hash)
	if err != nil {
		return nil, unavailable(ctx, fmt.Errorf("query snapshot entries: %w", err))
	}
	defer rows.Close()

	state := event.StateMap{}
	for rows.Next() {
		var typ, key, id string
		if err := rows.Scan(&typ, &key, &id); err != nil {
			return nil, fmt.Errorf("scan snapshot entry: %w", err)
		}
		state[event.Key(typ, key)] = id
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(ctx, fmt.Errorf("iterate snapshot entries: %w", err))
	}
	return state, nil
}
