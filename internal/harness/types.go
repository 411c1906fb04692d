package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/roomstate/internal/event"
)

// Result is the outcome of a scenario run.
type Result struct {
	// Name is the scenario name.
	Name string `json:"name"`

	// Pass is true when the state at END matches the expected ids.
	Pass bool `json:"pass"`

	// Expected is the state built from the scenario's expect list.
	Expected event.StateMap `json:"-"`

	// State is the state at END, restricted to expected keys and keys
	// whose value differs from the state at START.
	State event.StateMap `json:"-"`

	// Order is the processing order of the event graph.
	Order []string `json:"order"`

	// Resolutions counts the events whose parents had to be resolved.
	Resolutions int `json:"resolutions"`

	// Errors contains mismatch messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(name string) *Result {
	return &Result{
		Name:   name,
		Pass:   true,
		Order:  []string{},
		Errors: []string{},
	}
}

// AddError adds a mismatch message and marks the result as failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// MismatchError is returned by Result.Err for a failed scenario.
type MismatchError struct {
	Scenario string
	Errors   []string
}

func (e *MismatchError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario %s failed:", e.Scenario)
	for _, msg := range e.Errors {
		fmt.Fprintf(&buf, "\n  %s", msg)
	}
	return buf.String()
}

// Err returns a *MismatchError for a failed result, nil otherwise.
func (r *Result) Err() error {
	if r.Pass {
		return nil
	}
	return &MismatchError{Scenario: r.Name, Errors: r.Errors}
}

// compareState records every difference between want and got.
func (r *Result) compareState(want, got event.StateMap) {
	for _, k := range want.SortedKeys() {
		id, ok := got[k]
		switch {
		case !ok:
			r.AddError(fmt.Sprintf("%s: want %s, missing", k, want[k]))
		case id != want[k]:
			r.AddError(fmt.Sprintf("%s: want %s, got %s", k, want[k], id))
		}
	}
	for _, k := range got.SortedKeys() {
		if _, ok := want[k]; !ok {
			r.AddError(fmt.Sprintf("%s: unexpected %s", k, got[k]))
		}
	}
}
