// Package canonicaljson implements the canonical JSON form used to fingerprint
// room events and state snapshots.
//
// The value model is sealed (see Value) and has no float variant, matching the
// canonical JSON rules of room version 6 and later. Marshal is the only
// encoder that may feed a hash; encoding/json output is not stable enough.
package canonicaljson
