package roomversion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForVersionPresets(t *testing.T) {
	tests := []struct {
		version string
		check   func(t *testing.T, r AuthRules)
	}{
		{"1", func(t *testing.T, r AuthRules) {
			assert.True(t, r.SpecialCaseRoomRedaction)
			assert.True(t, r.SpecialCaseRoomAliases)
			assert.False(t, r.StrictCanonicalJSON)
		}},
		{"2", func(t *testing.T, r AuthRules) {
			assert.True(t, r.SpecialCaseRoomRedaction)
		}},
		{"4", func(t *testing.T, r AuthRules) {
			assert.False(t, r.SpecialCaseRoomRedaction)
			assert.True(t, r.SpecialCaseRoomAliases)
		}},
		{"6", func(t *testing.T, r AuthRules) {
			assert.False(t, r.SpecialCaseRoomAliases)
			assert.True(t, r.StrictCanonicalJSON)
			assert.True(t, r.LimitNotificationsPowerLevels)
			assert.False(t, r.Knocking)
		}},
		{"7", func(t *testing.T, r AuthRules) {
			assert.True(t, r.Knocking)
			assert.False(t, r.RestrictedJoinRule)
		}},
		{"9", func(t *testing.T, r AuthRules) {
			assert.True(t, r.RestrictedJoinRule)
			assert.False(t, r.KnockRestrictedJoinRule)
		}},
		{"10", func(t *testing.T, r AuthRules) {
			assert.True(t, r.KnockRestrictedJoinRule)
			assert.True(t, r.IntegerPowerLevels)
			assert.False(t, r.UseRoomCreateSender)
		}},
		{"11", func(t *testing.T, r AuthRules) {
			assert.True(t, r.UseRoomCreateSender)
			assert.True(t, r.Knocking)
		}},
	}

	for _, tt := range tests {
		t.Run("v"+tt.version, func(t *testing.T) {
			r, err := ForVersion(tt.version)
			require.NoError(t, err)
			assert.Equal(t, tt.version, r.Version)
			tt.check(t, r)
		})
	}
}

func TestForVersionUnsupported(t *testing.T) {
	_, err := ForVersion("12")
	require.Error(t, err)

	var uv *UnsupportedVersionError
	require.ErrorAs(t, err, &uv)
	assert.Equal(t, "12", uv.Version)
}

func TestVersionsOrdered(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11"}, Versions())
}

func TestLoadCUE(t *testing.T) {
	rules, err := LoadCUE("rules.cue", []byte(`
rules: {
	version:  "10"
	knocking: false
}
`))
	require.NoError(t, err)

	assert.Equal(t, "10", rules.Version)
	assert.False(t, rules.Knocking, "override applied")
	assert.True(t, rules.IntegerPowerLevels, "preset kept")
}

func TestLoadCUEMatchesPresetWithoutOverrides(t *testing.T) {
	rules, err := LoadCUE("rules.cue", []byte(`rules: version: "6"`))
	require.NoError(t, err)

	want, err := ForVersion("6")
	require.NoError(t, err)
	assert.Equal(t, want, rules)
}

func TestLoadCUEErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown version", `rules: version: "12"`},
		{"unknown field", `rules: {version: "10", surprise: true}`},
		{"wrong type", `rules: {version: "10", knocking: "yes"}`},
		{"missing version", `rules: {knocking: true}`},
		{"syntax", `rules: {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadCUE("rules.cue", []byte(tt.doc))
			require.Error(t, err)
		})
	}
}
