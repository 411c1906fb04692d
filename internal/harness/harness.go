package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/roomstate/internal/auth"
	"github.com/roach88/roomstate/internal/event"
	"github.com/roach88/roomstate/internal/roomversion"
	"github.com/roach88/roomstate/internal/stateres"
	"github.com/roach88/roomstate/internal/store"
	"github.com/roach88/roomstate/internal/testutil"
)

// Harness simulates room histories.
//
// Each run starts from a fresh in-memory store and a clock at zero, so the
// same scenario always produces the same events and the same state.
type Harness struct {
	resolver *stateres.Resolver
	logger   *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithResolver sets the resolver used where branches merge.
func WithResolver(r *stateres.Resolver) Option {
	return func(h *Harness) {
		h.resolver = r
	}
}

// WithLogger sets the harness logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// New creates a Harness. Without WithResolver, it resolves with a resolver
// that shares the harness logger and numbers its runs per scenario.
func New(opts ...Option) *Harness {
	h := &Harness{}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if h.resolver == nil {
		h.resolver = stateres.New(
			stateres.WithLogger(h.logger),
			stateres.WithRunIDGenerator(testutil.NewFixedRunIDs()),
		)
	}
	return h
}

// Run executes a scenario with a default Harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(context.Background(), scenario)
}

// simulation is the state of one scenario run.
type simulation struct {
	rules   roomversion.AuthRules
	store   *store.Memory
	clock   *testutil.DeterministicClock
	events  map[string]*event.Event
	stateAt map[string]event.StateMap
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Build the standard room plus the scenario events, without edges
//  2. Link prev events from the edge chains
//  3. Visit events in lexicographical topological order; for each, compute
//     the state before it (resolving when it has several prev events),
//     derive its auth events from that state and stamp a fresh timestamp
//  4. Compare the state at END with the expected events
//
// An error is returned when the scenario cannot be simulated; a state
// mismatch is reported through Result.Pass and Result.Errors.
func (h *Harness) Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	rules, err := roomversion.ForVersion(scenario.RoomVersion)
	if err != nil {
		return nil, err
	}
	sim := &simulation{
		rules:   rules,
		store:   store.NewMemory(),
		clock:   testutil.NewDeterministicClock(),
		events:  make(map[string]*event.Event),
		stateAt: make(map[string]event.StateMap),
	}

	for _, spec := range slices.Concat(InitialEvents(), scenario.Events) {
		ev, err := spec.build()
		if err != nil {
			return nil, err
		}
		sim.events[ev.ID] = ev
	}

	graph := stateres.Graph{}
	for id := range sim.events {
		graph[id] = nil
	}
	for _, chain := range slices.Concat([][]string{initialChain}, scenario.Edges) {
		for i := 0; i+1 < len(chain); i++ {
			child, parent := EventID(chain[i]), EventID(chain[i+1])
			if !slices.Contains(graph[child], parent) {
				graph[child] = append(graph[child], parent)
			}
		}
	}

	order, released := stateres.LexicographicalTopologicalSort(graph, func(id string) stateres.SortKey {
		return stateres.SortKey{ID: id}
	})
	if len(released) > 0 {
		return nil, fmt.Errorf("scenario %s: prev events form a cycle through %v", scenario.Name, released)
	}

	result := NewResult(scenario.Name)
	result.Order = order
	for _, id := range order {
		prevs := slices.Sorted(slices.Values(graph[id]))
		if len(prevs) > 1 {
			result.Resolutions++
		}
		if err := h.step(ctx, sim, id, prevs); err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
	}

	expected := event.StateMap{}
	for _, name := range scenario.Expect {
		ev := sim.events[EventID(name)]
		k, _ := ev.Key()
		expected[k] = ev.ID
	}
	result.Expected = expected
	result.State = filterEndState(sim.stateAt[EventID("START")], sim.stateAt[EventID("END")], expected)
	result.compareState(expected, result.State)

	h.logger.Info("scenario simulated",
		"scenario", scenario.Name,
		"events", len(order),
		"resolutions", result.Resolutions,
		"pass", result.Pass,
	)
	return result, nil
}

// step rebuilds one event on top of its prev events and records the state
// after it.
func (h *Harness) step(ctx context.Context, sim *simulation, id string, prevs []string) error {
	var before event.StateMap
	switch len(prevs) {
	case 0:
		before = event.StateMap{}
	case 1:
		before = sim.stateAt[prevs[0]].Clone()
	default:
		forks := make([]event.StateMap, len(prevs))
		for i, p := range prevs {
			forks[i] = sim.stateAt[p]
		}
		res, err := h.resolver.Resolve(ctx, sim.rules, forks, sim.store)
		if err != nil {
			return fmt.Errorf("resolve before %s: %w", id, err)
		}
		before = res.State
	}

	ev := *sim.events[id]
	types, err := auth.AuthTypes(sim.rules, &ev)
	if err != nil {
		return fmt.Errorf("auth types of %s: %w", id, err)
	}
	ev.AuthEvents = []string{}
	for _, k := range types {
		if authID, ok := before[k]; ok {
			ev.AuthEvents = append(ev.AuthEvents, authID)
		}
	}
	ev.PrevEvents = prevs
	ev.OriginServerTS = sim.clock.Next()
	sim.events[id] = &ev
	sim.store.Add(&ev)

	after := before.Clone()
	if k, ok := ev.Key(); ok {
		after[k] = ev.ID
	}
	sim.stateAt[id] = after

	h.logger.Debug("event simulated",
		"event_id", id,
		"prev_events", prevs,
		"auth_events", ev.AuthEvents,
	)
	return nil
}

// filterEndState keeps the entries of end that are expected or that changed
// since start, and drops the placeholder slot.
func filterEndState(start, end, expected event.StateMap) event.StateMap {
	out := event.StateMap{}
	for k, id := range end {
		if k == event.Key(dummyType, dummyKey) {
			continue
		}
		_, want := expected[k]
		if prev, ok := start[k]; want || !ok || prev != id {
			out[k] = id
		}
	}
	return out
}
