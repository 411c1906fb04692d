// Package store provides event storage for state resolution.
//
// Three backends implement Fetcher:
//   - Memory: a map, for tests and JSON fixtures
//   - Store: SQLite, the durable default used by the CLI
//   - PgStore: PostgreSQL via pgxpool, for shared deployments
//
// Cache wraps any Fetcher for the duration of one resolution call.
//
// # Critical Patterns
//
// Events are immutable. Writes use ON CONFLICT DO NOTHING so importing the
// same event twice is a no-op; only the local rejected flag may change.
//
// Resolved states are content addressed: a snapshot row records that a room
// reached the state with a given hash, and the entries are shared by every
// snapshot with that hash. Snapshot rows are append-only and ordered by seq.
//
// All queries that return lists order by seq or by identifier so results are
// stable across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
