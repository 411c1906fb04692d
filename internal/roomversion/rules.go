// Package roomversion describes how authorization rules differ between room
// versions.
//
// Each room version selects a set of behaviour flags. The resolver and auth
// checker only ever read the flags, never the version string, so custom rule
// sets loaded from CUE behave exactly like the built-in presets.
package roomversion

import (
	"cmp"
	"fmt"
	"slices"
)

// AuthRules toggles version-specific authorization behaviour.
type AuthRules struct {
	// Version is informational; it names the preset the flags came from.
	Version string `json:"version"`

	// SpecialCaseRoomRedaction lets senders redact events from their own
	// server without the redact level (v1 to v2).
	SpecialCaseRoomRedaction bool `json:"special_case_room_redaction"`
	// SpecialCaseRoomAliases authorizes m.room.aliases by server name
	// alone (v1 to v5).
	SpecialCaseRoomAliases bool `json:"special_case_room_aliases"`
	// StrictCanonicalJSON forbids out-of-range integers in content (v6+).
	StrictCanonicalJSON bool `json:"strict_canonical_json"`
	// LimitNotificationsPowerLevels guards the notifications map of power
	// levels (v6+).
	LimitNotificationsPowerLevels bool `json:"limit_notifications_power_levels"`
	// Knocking enables the knock membership and join rule (v7+).
	Knocking bool `json:"knocking"`
	// RestrictedJoinRule enables the restricted join rule (v8+).
	RestrictedJoinRule bool `json:"restricted_join_rule"`
	// KnockRestrictedJoinRule enables the knock_restricted join rule (v10+).
	KnockRestrictedJoinRule bool `json:"knock_restricted_join_rule"`
	// IntegerPowerLevels rejects power levels written as strings (v10+).
	IntegerPowerLevels bool `json:"integer_power_levels"`
	// UseRoomCreateSender takes the room creator from the create event's
	// sender instead of content.creator (v11+).
	UseRoomCreateSender bool `json:"use_room_create_sender"`
}

// V1 covers room versions 1 and 2.
func V1() AuthRules {
	return AuthRules{
		Version:                  "1",
		SpecialCaseRoomRedaction: true,
		SpecialCaseRoomAliases:   true,
	}
}

// V3 covers room versions 3 to 5.
func V3() AuthRules {
	r := V1()
	r.Version = "3"
	r.SpecialCaseRoomRedaction = false
	return r
}

// V6 introduces strict canonical JSON and the notifications guard.
func V6() AuthRules {
	r := V3()
	r.Version = "6"
	r.SpecialCaseRoomAliases = false
	r.StrictCanonicalJSON = true
	r.LimitNotificationsPowerLevels = true
	return r
}

// V7 introduces knocking.
func V7() AuthRules {
	r := V6()
	r.Version = "7"
	r.Knocking = true
	return r
}

// V8 introduces restricted joins. Room version 9 uses the same rules.
func V8() AuthRules {
	r := V7()
	r.Version = "8"
	r.RestrictedJoinRule = true
	return r
}

// V10 introduces knock_restricted and integer-only power levels.
func V10() AuthRules {
	r := V8()
	r.Version = "10"
	r.KnockRestrictedJoinRule = true
	r.IntegerPowerLevels = true
	return r
}

// V11 takes the creator from the create event's sender.
func V11() AuthRules {
	r := V10()
	r.Version = "11"
	r.UseRoomCreateSender = true
	return r
}

var presets = map[string]func() AuthRules{
	"1":  V1,
	"2":  V1,
	"3":  V3,
	"4":  V3,
	"5":  V3,
	"6":  V6,
	"7":  V7,
	"8":  V8,
	"9":  V8,
	"10": V10,
	"11": V11,
}

// UnsupportedVersionError is returned for room versions without a preset.
type UnsupportedVersionError struct {
	Version string
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported room version %q", e.Version)
}

// ForVersion returns the preset for a room version string.
// The returned rules carry the requested version, not the preset's base.
func ForVersion(version string) (AuthRules, error) {
	preset, ok := presets[version]
	if !ok {
		return AuthRules{}, &UnsupportedVersionError{Version: version}
	}
	r := preset()
	r.Version = version
	return r, nil
}

// Versions lists the supported room versions in numeric order.
func Versions() []string {
	out := make([]string, 0, len(presets))
	for v := range presets {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b string) int {
		return cmp.Or(cmp.Compare(len(a), len(b)), cmp.Compare(a, b))
	})
	return out
}
