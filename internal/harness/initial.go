package harness

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/roomstate/internal/event"
)

// Every scenario runs in the same room on the server "foo".
const (
	RoomID = "!test:foo"

	Alice   = "@alice:foo"
	Bob     = "@bob:foo"
	Charlie = "@charlie:foo"

	// dummyType and dummyKey mark the START and END placeholders. They are
	// state events so they can carry a state, and are ignored when states
	// are compared.
	dummyType = "m.room.message"
	dummyKey  = "dummy"
)

// EventID expands a scenario name to an event ID.
func EventID(name string) string {
	if strings.HasPrefix(name, "$") {
		return name
	}
	return "$" + name + ":foo"
}

// InitialEvents returns the standard room every scenario starts from: alice
// creates a public room, raises herself to 100, and bob and charlie join.
// START and END are placeholders that scenarios hang their branches from.
func InitialEvents() []EventSpec {
	return []EventSpec{
		{ID: "CREATE", Sender: Alice, Type: "m.room.create", StateKey: event.StringPtr(""),
			Content: map[string]any{"creator": Alice}},
		{ID: "IMA", Sender: Alice, Type: "m.room.member", StateKey: event.StringPtr(Alice),
			Content: map[string]any{"membership": "join"}},
		{ID: "IPOWER", Sender: Alice, Type: "m.room.power_levels", StateKey: event.StringPtr(""),
			Content: map[string]any{"users": map[string]any{Alice: 100}}},
		{ID: "IJR", Sender: Alice, Type: "m.room.join_rules", StateKey: event.StringPtr(""),
			Content: map[string]any{"join_rule": "public"}},
		{ID: "IMB", Sender: Bob, Type: "m.room.member", StateKey: event.StringPtr(Bob),
			Content: map[string]any{"membership": "join"}},
		{ID: "IMC", Sender: Charlie, Type: "m.room.member", StateKey: event.StringPtr(Charlie),
			Content: map[string]any{"membership": "join"}},
		{ID: "START", Sender: Charlie, Type: dummyType, StateKey: event.StringPtr(dummyKey)},
		{ID: "END", Sender: Charlie, Type: dummyType, StateKey: event.StringPtr(dummyKey)},
	}
}

// initialNames lists the names of InitialEvents.
var initialNames = []string{"CREATE", "IMA", "IPOWER", "IJR", "IMB", "IMC", "START", "END"}

// initialChain links the standard room, newest first.
var initialChain = []string{"START", "IMC", "IMB", "IJR", "IPOWER", "IMA", "CREATE"}

// build turns a spec into an event with no edges or timestamp yet.
func (s EventSpec) build() (*event.Event, error) {
	content := []byte("{}")
	if len(s.Content) > 0 {
		var err error
		content, err = json.Marshal(s.Content)
		if err != nil {
			return nil, fmt.Errorf("event %s: encode content: %w", s.ID, err)
		}
	}
	return &event.Event{
		ID:       EventID(s.ID),
		RoomID:   RoomID,
		Sender:   s.Sender,
		Type:     s.Type,
		StateKey: s.StateKey,
		Content:  content,
	}, nil
}
