package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/roomstate/internal/canonicaljson"
)

// LevelField names an integer field of m.room.power_levels.
type LevelField string

const (
	FieldUsersDefault  LevelField = "users_default"
	FieldEventsDefault LevelField = "events_default"
	FieldStateDefault  LevelField = "state_default"
	FieldBan           LevelField = "ban"
	FieldRedact        LevelField = "redact"
	FieldKick          LevelField = "kick"
	FieldInvite        LevelField = "invite"
)

// LevelFields lists the integer fields in the order they are checked.
var LevelFields = []LevelField{
	FieldUsersDefault,
	FieldEventsDefault,
	FieldStateDefault,
	FieldBan,
	FieldRedact,
	FieldKick,
	FieldInvite,
}

// Default is the value a field takes when the content omits it.
func (f LevelField) Default() int64 {
	switch f {
	case FieldStateDefault, FieldBan, FieldRedact, FieldKick:
		return 50
	default:
		return 0
	}
}

// PowerLevels is the parsed content of an m.room.power_levels event.
// Fields absent from the content are absent from the maps; accessors apply
// the defaults.
type PowerLevels struct {
	Fields        map[LevelField]int64
	Users         map[string]int64
	Events        map[string]int64
	Notifications map[string]int64
}

// Level returns the value of an integer field, or its default.
func (pl *PowerLevels) Level(f LevelField) int64 {
	if v, ok := pl.Fields[f]; ok {
		return v
	}
	return f.Default()
}

// Lookup returns the value of an integer field and whether it was present.
func (pl *PowerLevels) Lookup(f LevelField) (int64, bool) {
	v, ok := pl.Fields[f]
	return v, ok
}

// UserLevel returns the power of a user: users[user], else users_default.
func (pl *PowerLevels) UserLevel(user string) int64 {
	if v, ok := pl.Users[user]; ok {
		return v
	}
	return pl.Level(FieldUsersDefault)
}

// EventLevel returns the power needed to send an event of the given type.
func (pl *PowerLevels) EventLevel(eventType string, isState bool) int64 {
	if v, ok := pl.Events[eventType]; ok {
		return v
	}
	if isState {
		return pl.Level(FieldStateDefault)
	}
	return pl.Level(FieldEventsDefault)
}

// PowerLevelsContent parses the event's content as power levels. With
// integersOnly, levels written as strings are malformed.
func (e *Event) PowerLevelsContent(integersOnly bool) (*PowerLevels, error) {
	fields, err := e.fields()
	if err != nil {
		return nil, err
	}
	pl := &PowerLevels{
		Fields:        make(map[LevelField]int64),
		Users:         make(map[string]int64),
		Events:        make(map[string]int64),
		Notifications: make(map[string]int64),
	}
	for _, f := range LevelFields {
		raw, ok := fields[string(f)]
		if !ok {
			continue
		}
		v, err := parseLevel(raw, integersOnly)
		if err != nil {
			return nil, e.malformed(string(f), err)
		}
		pl.Fields[f] = v
	}

	if err := e.parseLevelMap(fields, "users", integersOnly, pl.Users); err != nil {
		return nil, err
	}
	for user := range pl.Users {
		if !IsUserID(user) {
			return nil, e.malformed("users", fmt.Errorf("invalid user id %q", user))
		}
	}
	if err := e.parseLevelMap(fields, "events", integersOnly, pl.Events); err != nil {
		return nil, err
	}
	if err := e.parseLevelMap(fields, "notifications", integersOnly, pl.Notifications); err != nil {
		return nil, err
	}
	return pl, nil
}

func (e *Event) parseLevelMap(fields map[string]json.RawMessage, name string, integersOnly bool, into map[string]int64) error {
	raw, ok := fields[name]
	if !ok {
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return e.malformed(name, err)
	}
	for k, v := range m {
		level, err := parseLevel(v, integersOnly)
		if err != nil {
			return e.malformed(name+"."+k, err)
		}
		into[k] = level
	}
	return nil
}

var errNotInteger = errors.New("power level is not an integer")

// parseLevel reads one power level. Older room versions let levels be
// decimal strings.
func parseLevel(raw json.RawMessage, integersOnly bool) (int64, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, `"`) {
		if integersOnly {
			return 0, errNotInteger
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", errNotInteger, s)
		}
		return v, nil
	}
	v, err := canonicaljson.Parse([]byte(trimmed))
	if err != nil {
		return 0, err
	}
	n, ok := v.(canonicaljson.Int)
	if !ok {
		return 0, errNotInteger
	}
	return int64(n), nil
}
