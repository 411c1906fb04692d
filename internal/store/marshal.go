package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/roomstate/internal/event"
)

// marshalEvent converts an event to JSON TEXT for the raw column.
// The rejected flag lives in its own column and is not part of raw.
func marshalEvent(ev *event.Event) (string, error) {
	stored := *ev
	stored.Rejected = false
	if stored.PrevEvents == nil {
		stored.PrevEvents = []string{}
	}
	if stored.AuthEvents == nil {
		stored.AuthEvents = []string{}
	}
	if len(stored.Content) == 0 {
		stored.Content = json.RawMessage(`{}`)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&stored); err != nil {
		return "", fmt.Errorf("marshal event %s: %w", ev.ID, err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// marshalContent returns the content column value.
func marshalContent(ev *event.Event) string {
	if len(ev.Content) == 0 {
		return "{}"
	}
	return string(ev.Content)
}

// unmarshalEvent parses the raw column back into an event.
func unmarshalEvent(raw string, rejected bool) (*event.Event, error) {
	var ev event.Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	ev.Rejected = rejected
	return &ev, nil
}

// nullableStateKey maps a missing state key to SQL NULL.
func nullableStateKey(ev *event.Event) any {
	if ev.StateKey == nil {
		return nil
	}
	return *ev.StateKey
}
