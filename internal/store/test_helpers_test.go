package store

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/roach88/roomstate/internal/event"
)

// createTestStore creates a new on-disk store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvent creates a state event with minimal required fields.
func createTestEvent(id, typ, stateKey string, auth ...string) *event.Event {
	return &event.Event{
		ID:             id,
		RoomID:         "!room:foo",
		Sender:         "@alice:foo",
		Type:           typ,
		StateKey:       event.StringPtr(stateKey),
		OriginServerTS: 1000,
		AuthEvents:     auth,
		PrevEvents:     auth,
		Content:        json.RawMessage(`{"k":"v"}`),
	}
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("query indexes: %v", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan index: %v", err)
		}
		names = append(names, name)
	}
	return names
}

