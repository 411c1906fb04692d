package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/roomstate/internal/roomversion"
)

// Scenario describes a room history to simulate and the state expected at
// its end.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// RoomVersion selects the authorization rules. Defaults to "6".
	RoomVersion string `yaml:"room_version,omitempty"`

	// Events are added to the standard room (see InitialEvents).
	Events []EventSpec `yaml:"events"`

	// Edges are prev-event chains. Each chain lists event names newest
	// first: [END, B, A, START] makes A a prev event of B, and so on.
	Edges [][]string `yaml:"edges"`

	// Expect lists the event names expected in the state at END.
	Expect []string `yaml:"expect"`
}

// EventSpec is one event of a scenario. Names are short: "PA" becomes the
// event ID "$PA:foo". Senders and state keys are written out in full.
type EventSpec struct {
	ID       string         `yaml:"id"`
	Sender   string         `yaml:"sender"`
	Type     string         `yaml:"type"`
	StateKey *string        `yaml:"state_key"`
	Content  map[string]any `yaml:"content,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if scenario.RoomVersion == "" {
		scenario.RoomVersion = "6"
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml file of dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}
	slices.Sort(paths)

	out := make([]*Scenario, 0, len(paths))
	for _, p := range paths {
		s, err := LoadScenario(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
		out = append(out, s)
	}
	return out, nil
}

// validateScenario checks that required fields are present and that every
// name used by edges and expectations is defined.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if _, err := roomversion.ForVersion(s.RoomVersion); err != nil {
		return err
	}
	if len(s.Edges) == 0 {
		return fmt.Errorf("edges list is required and must be non-empty")
	}
	if len(s.Expect) == 0 {
		return fmt.Errorf("expect list is required and must be non-empty")
	}

	known := make(map[string]struct{})
	for _, name := range initialNames {
		known[name] = struct{}{}
	}
	for i, ev := range s.Events {
		switch {
		case ev.ID == "":
			return fmt.Errorf("events[%d]: id is required", i)
		case ev.Sender == "":
			return fmt.Errorf("events[%d]: sender is required", i)
		case ev.Type == "":
			return fmt.Errorf("events[%d]: type is required", i)
		case ev.StateKey == nil:
			return fmt.Errorf("events[%d]: state_key is required", i)
		}
		if _, dup := known[ev.ID]; dup {
			return fmt.Errorf("events[%d]: duplicate id %q", i, ev.ID)
		}
		known[ev.ID] = struct{}{}
	}

	for i, chain := range s.Edges {
		if len(chain) < 2 {
			return fmt.Errorf("edges[%d]: a chain needs at least two events", i)
		}
		for _, name := range chain {
			if _, ok := known[name]; !ok {
				return fmt.Errorf("edges[%d]: unknown event %q", i, name)
			}
		}
	}
	for _, name := range s.Expect {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("expect: unknown event %q", name)
		}
	}
	return nil
}
