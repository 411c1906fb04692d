// Package harness simulates room histories and checks the state that state
// resolution produces at their end.
//
// Every scenario starts from the same room (InitialEvents): alice creates
// it, sets power levels, opens it to the public, and bob and charlie join.
// Two placeholder events, START and END, sit on top of that room. A
// scenario adds events, draws prev-event chains from END down to START,
// and names the events it expects in the state at END.
//
// # Scenario Format
//
//	name: ban_vs_power_level
//	description: "A ban survives a concurrent power level change"
//	room_version: "6"
//	events:
//	  - id: PA
//	    sender: "@alice:foo"
//	    type: m.room.power_levels
//	    state_key: ""
//	    content:
//	      users: {"@alice:foo": 100, "@bob:foo": 50}
//	edges:
//	  - [END, MB, MA, PA, START]
//	  - [END, PA, PB]
//	expect: [PA, MA, MB]
//
// Names are short: "PA" is the event ID "$PA:foo". Chains are written
// newest first.
//
// # Simulation
//
// Events are visited in lexicographical topological order of the prev
// graph. Each event gets the next timestamp, the state before it (the
// resolved state of its prev events when there are several) and the auth
// events that state selects for it. The state at END is compared with the
// expected events after dropping keys that did not change since START.
//
// # Golden Files
//
// RunWithGolden stores the compared state as canonical JSON in
// testdata/golden, so review diffs show exactly which slots moved.
package harness
