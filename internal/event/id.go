package event

import (
	"fmt"

	"github.com/roach88/roomstate/internal/canonicaljson"
)

// Canonical returns the canonical JSON form of the event used for its
// reference hash. The event ID and the local rejected flag are excluded.
func (e *Event) Canonical() (canonicaljson.Object, error) {
	content := canonicaljson.Value(canonicaljson.Object{})
	if len(e.Content) > 0 {
		v, err := canonicaljson.Parse(e.Content)
		if err != nil {
			return nil, fmt.Errorf("event %s content: %w", e.ID, err)
		}
		content = v
	}
	obj := canonicaljson.Object{
		"room_id":          canonicaljson.String(e.RoomID),
		"sender":           canonicaljson.String(e.Sender),
		"type":             canonicaljson.String(e.Type),
		"origin_server_ts": canonicaljson.Int(e.OriginServerTS),
		"prev_events":      stringArray(e.PrevEvents),
		"auth_events":      stringArray(e.AuthEvents),
		"content":          content,
	}
	if e.StateKey != nil {
		obj["state_key"] = canonicaljson.String(*e.StateKey)
	}
	if e.Redacts != "" {
		obj["redacts"] = canonicaljson.String(e.Redacts)
	}
	return obj, nil
}

// ComputeID derives a content-addressed event ID: "$" followed by the
// unpadded URL-safe base64 SHA-256 of the canonical form.
func ComputeID(e *Event) (string, error) {
	obj, err := e.Canonical()
	if err != nil {
		return "", err
	}
	h, err := canonicaljson.ReferenceHash(obj)
	if err != nil {
		return "", err
	}
	return "$" + h, nil
}

func stringArray(ss []string) canonicaljson.Array {
	arr := make(canonicaljson.Array, len(ss))
	for i, s := range ss {
		arr[i] = canonicaljson.String(s)
	}
	return arr
}
