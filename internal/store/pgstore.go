package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/roomstate/internal/event"
)

// PgStore is a PostgreSQL-backed event store for deployments that share
// one database between resolvers.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore on an existing pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// OpenPg connects to dsn, verifies the connection and ensures the schema.
func OpenPg(ctx context.Context, dsn string) (*PgStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s := NewPgStore(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool.
func (s *PgStore) Close() {
	s.pool.Close()
}

// EnsureSchema creates the tables if they don't exist.
func (s *PgStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS rs_events (
			seq              BIGSERIAL PRIMARY KEY,
			event_id         TEXT NOT NULL UNIQUE,
			room_id          TEXT NOT NULL,
			type             TEXT NOT NULL,
			state_key        TEXT,
			sender           TEXT NOT NULL,
			origin_server_ts BIGINT NOT NULL,
			auth_events      TEXT[] NOT NULL DEFAULT '{}',
			prev_events      TEXT[] NOT NULL DEFAULT '{}',
			content          JSONB NOT NULL DEFAULT '{}',
			rejected         BOOLEAN NOT NULL DEFAULT FALSE,
			raw              TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rs_events_room ON rs_events(room_id, seq)`,
		`CREATE TABLE IF NOT EXISTS rs_state_snapshots (
			seq        BIGSERIAL PRIMARY KEY,
			room_id    TEXT NOT NULL,
			state_hash TEXT NOT NULL,
			run_id     TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rs_snapshots_room ON rs_state_snapshots(room_id, seq)`,
		`CREATE TABLE IF NOT EXISTS rs_state_entries (
			state_hash TEXT NOT NULL,
			type       TEXT NOT NULL,
			state_key  TEXT NOT NULL,
			event_id   TEXT NOT NULL,
			PRIMARY KEY (state_hash, type, state_key)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// WriteEvents inserts events in one transaction. Duplicates are ignored.
func (s *PgStore) WriteEvents(ctx context.Context, evs []*event.Event) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, ev := range evs {
		raw, err := marshalEvent(ev)
		if err != nil {
			return err
		}
		auth, prev := ev.AuthEvents, ev.PrevEvents
		if auth == nil {
			auth = []string{}
		}
		if prev == nil {
			prev = []string{}
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO rs_events
			(event_id, room_id, type, state_key, sender, origin_server_ts, auth_events, prev_events, content, rejected, raw)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11)
			ON CONFLICT (event_id) DO NOTHING`,
			ev.ID, ev.RoomID, ev.Type, ev.StateKey, ev.Sender, ev.OriginServerTS,
			auth, prev, marshalContent(ev), ev.Rejected, raw)
		if err != nil {
			return fmt.Errorf("insert event %s: %w", ev.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit events: %w", err)
	}
	return nil
}

// Event implements Fetcher.
func (s *PgStore) Event(ctx context.Context, id string) (*event.Event, error) {
	var raw string
	var rejected bool
	err := s.pool.QueryRow(ctx, `SELECT raw, rejected FROM rs_events WHERE event_id = $1`, id).Scan(&raw, &rejected)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, unavailable(ctx, fmt.Errorf("get event %s: %w", id, err))
	}
	return unmarshalEvent(raw, rejected)
}

// Events implements Fetcher with a single ANY query.
func (s *PgStore) Events(ctx context.Context, ids []string) (map[string]*event.Event, error) {
	out := make(map[string]*event.Event, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `SELECT raw, rejected FROM rs_events WHERE event_id = ANY($1)`, ids)
	if err != nil {
		return nil, unavailable(ctx, fmt.Errorf("query events: %w", err))
	}
	defer rows.Close()

	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out[ev.ID] = ev
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(ctx, fmt.Errorf("iterate events: %w", err))
	}
	return out, nil
}

// WriteSnapshot records a resolved state. See Store.WriteSnapshot.
func (s *PgStore) WriteSnapshot(ctx context.Context, roomID, runID string, state event.StateMap) (string, error) {
	hash := state.Hash()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, entry := range state.Entries() {
		batch.Queue(`
			INSERT INTO rs_state_entries (state_hash, type, state_key, event_id)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT DO NOTHING`, hash, entry.Type, entry.StateKey, entry.EventID)
	}
	batch.Queue(`INSERT INTO rs_state_snapshots (room_id, state_hash, run_id) VALUES ($1, $2, $3)`, roomID, hash, runID)
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit snapshot: %w", err)
	}
	return hash, nil
}

// LatestSnapshot returns the most recent snapshot of a room.
// Returns ErrNotFound if the room has none.
func (s *PgStore) LatestSnapshot(ctx context.Context, roomID string) (Snapshot, error) {
	snap := Snapshot{RoomID: roomID}
	err := s.pool.QueryRow(ctx, `
		SELECT seq, state_hash, run_id FROM rs_state_snapshots
		WHERE room_id = $1 ORDER BY seq DESC LIMIT 1`, roomID).Scan(&snap.Seq, &snap.Hash, &snap.RunID)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: no snapshot for room %s", ErrNotFound, roomID)
	}
	if err != nil {
		return Snapshot{}, unavailable(ctx, fmt.Errorf("latest snapshot %s: %w", roomID, err))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT type, state_key, event_id FROM rs_state_entries
		WHERE state_hash = $1 ORDER BY type, state_key`, snap.Hash)
	if err != nil {
		return Snapshot{}, unavailable(ctx, fmt.Errorf("query snapshot entries: %w", err))
	}
	defer rows.Close()

	snap.State = event.StateMap{}
	for rows.Next() {
		var typ, key, id string
		if err := rows.Scan(&typ, &key, &id); err != nil {
			return Snapshot{}, fmt.Errorf("scan snapshot entry: %w", err)
		}
		snap.State[event.Key(typ, key)] = id
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, unavailable(ctx, fmt.Errorf("iterate snapshot entries: %w", err))
	}
	return snap, nil
}
