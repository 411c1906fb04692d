package auth

import (
	"maps"
	"slices"

	"github.com/roach88/roomstate/internal/event"
	"github.com/roach88/roomstate/internal/roomversion"
)

// checkPowerLevels guards changes to m.room.power_levels: nobody may set or
// alter a level above their own, nor change the level of a user at or above
// their own (other than themselves).
func (r *room) checkPowerLevels(ev *event.Event, senderLevel int64) error {
	next, err := ev.PowerLevelsContent(r.rules.IntegerPowerLevels)
	if err != nil {
		return reject(ev.ID, CodeMalformedContent, "%v", err)
	}

	// The first power levels event of a room may set anything.
	if r.pl == nil {
		return nil
	}
	current := r.pl

	for _, f := range event.LevelFields {
		cur, curOK := current.Lookup(f)
		nw, nwOK := next.Lookup(f)
		if curOK == nwOK && cur == nw {
			continue
		}
		if old := current.Level(f); old > senderLevel {
			return reject(ev.ID, CodeInsufficientPower, "cannot change %s from %d, above own level %d", f, old, senderLevel)
		}
		if nl := next.Level(f); nl > senderLevel {
			return reject(ev.ID, CodeInsufficientPower, "cannot set %s to %d, above own level %d", f, nl, senderLevel)
		}
	}

	aboveSender := func(_ string, level int64) bool { return level > senderLevel }

	if key, ok := changedLevelViolation(current.Events, next.Events, senderLevel, aboveSender); !ok {
		return reject(ev.ID, CodeInsufficientPower, "cannot change events level for %s", key)
	}

	if r.rules.LimitNotificationsPowerLevels {
		if key, ok := changedLevelViolation(current.Notifications, next.Notifications, senderLevel, aboveSender); !ok {
			return reject(ev.ID, CodeInsufficientPower, "cannot change notifications level for %s", key)
		}
	}

	otherUserAtOrAbove := func(user string, level int64) bool {
		return user != ev.Sender && level >= senderLevel
	}
	if key, ok := changedLevelViolation(current.Users, next.Users, senderLevel, otherUserAtOrAbove); !ok {
		return reject(ev.ID, CodeInsufficientPower, "cannot change power level of %s", key)
	}

	return nil
}

// changedLevelViolation walks every key whose level differs between the two
// maps. A change is forbidden when the current level trips protected, or
// the new level is above the sender's. Returns the first offending key in
// sorted order and false, or "" and true.
func changedLevelViolation(current, next map[string]int64, senderLevel int64, protected func(key string, level int64) bool) (string, bool) {
	keys := slices.Sorted(maps.Keys(current))
	for k := range next {
		if _, ok := current[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	for _, k := range keys {
		cur, curOK := current[k]
		nw, nwOK := next[k]
		if curOK && nwOK && cur == nw {
			continue
		}
		if curOK && protected(k, cur) {
			return k, false
		}
		if nwOK && nw > senderLevel {
			return k, false
		}
	}
	return "", true
}

// UserPowerLevel returns user's level as granted by a power levels event,
// falling back to the creator rule when pl is nil or unreadable. Either
// argument may be nil.
func UserPowerLevel(rules roomversion.AuthRules, user string, pl, create *event.Event) int64 {
	if pl != nil {
		if levels, err := pl.PowerLevelsContent(rules.IntegerPowerLevels); err == nil {
			return levels.UserLevel(user)
		}
	}
	if create != nil {
		if creator, err := Creator(rules, create); err == nil && creator == user {
			return 100
		}
	}
	return 0
}
