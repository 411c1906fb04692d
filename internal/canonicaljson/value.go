package canonicaljson

import (
	"maps"
	"slices"
)

// Value is a sealed interface over the JSON shapes allowed in event content.
// Only Null, String, Int, Bool, Array and Object implement it.
// There is no float variant: canonical event JSON carries integers only.
type Value interface {
	canonical() // Sealed
}

// Null is JSON null. Event content may legitimately carry it
// (for example an explicit "reason": null on a membership event).
type Null struct{}

func (Null) canonical() {}

// String is a JSON string.
type String string

func (String) canonical() {}

// Int is a JSON integer. Always int64, never float64.
type Int int64

func (Int) canonical() {}

// Bool is a JSON boolean.
type Bool bool

func (Bool) canonical() {}

// Array is a JSON array.
type Array []Value

func (Array) canonical() {}

// Object is a JSON object. Use SortedKeys for deterministic iteration.
type Object map[string]Value

func (Object) canonical() {}

// SortedKeys returns keys ordered by Unicode code point.
// For UTF-8 strings byte order and code point order agree, so plain string
// comparison is enough.
func (obj Object) SortedKeys() []string {
	return slices.Sorted(maps.Keys(obj))
}

// Lookup returns the value at key and whether it was present.
func (obj Object) Lookup(key string) (Value, bool) {
	v, ok := obj[key]
	return v, ok
}

// String returns the string stored at key.
// The second result is false when the key is absent or not a string.
func (obj Object) String(key string) (string, bool) {
	v, ok := obj[key].(String)
	return string(v), ok
}

// Object returns the nested object stored at key.
func (obj Object) Object(key string) (Object, bool) {
	v, ok := obj[key].(Object)
	return v, ok
}
