package roomversion

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaSource string

// LoadError describes a rules file that does not fit the schema.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", e.Pos, e.Field, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// formatCUEError keeps the first CUE error with its source position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &LoadError{Field: "cue", Message: first.Error(), Pos: positions[0]}
	}
	return &LoadError{Field: "cue", Message: first.Error()}
}

// overrides maps CUE field names to the flag they set.
var overrides = []struct {
	name string
	set  func(*AuthRules, bool)
}{
	{"special_case_room_redaction", func(r *AuthRules, b bool) { r.SpecialCaseRoomRedaction = b }},
	{"special_case_room_aliases", func(r *AuthRules, b bool) { r.SpecialCaseRoomAliases = b }},
	{"strict_canonical_json", func(r *AuthRules, b bool) { r.StrictCanonicalJSON = b }},
	{"limit_notifications_power_levels", func(r *AuthRules, b bool) { r.LimitNotificationsPowerLevels = b }},
	{"knocking", func(r *AuthRules, b bool) { r.Knocking = b }},
	{"restricted_join_rule", func(r *AuthRules, b bool) { r.RestrictedJoinRule = b }},
	{"knock_restricted_join_rule", func(r *AuthRules, b bool) { r.KnockRestrictedJoinRule = b }},
	{"integer_power_levels", func(r *AuthRules, b bool) { r.IntegerPowerLevels = b }},
	{"use_room_create_sender", func(r *AuthRules, b bool) { r.UseRoomCreateSender = b }},
}

// LoadCUEFile reads a rules file from disk. See LoadCUE.
func LoadCUEFile(path string) (AuthRules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AuthRules{}, fmt.Errorf("reading rules file: %w", err)
	}
	return LoadCUE(path, data)
}

// LoadCUE compiles a rules document of the form
//
//	rules: {
//		version: "10"
//		knocking: false
//	}
//
// against the embedded schema. The version selects a preset; every other
// field present overrides one flag. Unknown fields are errors.
func LoadCUE(filename string, data []byte) (AuthRules, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return AuthRules{}, formatCUEError(err)
	}
	doc := ctx.CompileBytes(data, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return AuthRules{}, formatCUEError(err)
	}

	value := schema.Unify(doc)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return AuthRules{}, formatCUEError(err)
	}

	rulesVal := value.LookupPath(cue.ParsePath("rules"))
	versionVal := rulesVal.LookupPath(cue.ParsePath("version"))
	version, err := versionVal.String()
	if err != nil {
		return AuthRules{}, &LoadError{Field: "rules.version", Message: err.Error(), Pos: versionVal.Pos()}
	}
	rules, err := ForVersion(version)
	if err != nil {
		return AuthRules{}, &LoadError{Field: "rules.version", Message: err.Error(), Pos: versionVal.Pos()}
	}

	for _, o := range overrides {
		v := rulesVal.LookupPath(cue.ParsePath(o.name))
		if !v.Exists() || !v.IsConcrete() {
			continue
		}
		b, err := v.Bool()
		if err != nil {
			return AuthRules{}, &LoadError{Field: "rules." + o.name, Message: err.Error(), Pos: v.Pos()}
		}
		o.set(&rules, b)
	}
	return rules, nil
}
