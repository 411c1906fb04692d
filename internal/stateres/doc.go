// Package stateres implements Matrix state resolution v2.
//
// Given the state of a room at several forks, Resolve computes the single
// state that holds after the forks merge:
//
//  1. Split the input maps into unconflicted and conflicted slots.
//  2. Compute the auth difference of the input maps. Together with the
//     conflicted events it forms the full conflicted set.
//  3. Sort the power events of the full conflicted set by reverse
//     topological power order and authorize them one by one, starting from
//     the unconflicted state.
//  4. Order the remaining events by their position on the power levels
//     mainline and authorize them on top of the result.
//  5. Reapply the unconflicted state.
//
// Every tie is broken by origin_server_ts and then event ID, so the outcome
// depends only on the inputs and never on map iteration order.
//
// Events are fetched through a store.Fetcher wrapped in a per-call
// store.Cache; auth chains are walked one layer per batched fetch.
package stateres
