package canonicaljson

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Integers accepted by strict parsing lie in [-(2^53)+1, (2^53)-1].
const (
	MaxSafeInt = 1<<53 - 1
	MinSafeInt = -MaxSafeInt
)

// ErrFloat is returned when a number has a fractional part or an exponent.
var ErrFloat = errors.New("floats are forbidden in canonical JSON")

// Parse decodes JSON into a Value. Floats are rejected; integers may use the
// full int64 range.
func Parse(data []byte) (Value, error) {
	return parse(data, false)
}

// ParseStrict is Parse plus the canonical JSON number rules enforced since
// room version 6: integers must be in the safe range and -0 is forbidden.
func ParseStrict(data []byte) (Value, error) {
	return parse(data, true)
}

func parse(data []byte, strict bool) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("decode json: trailing data after value")
	}

	return fromDecoded(raw, strict)
}

// fromDecoded converts the output of a UseNumber decoder into a Value.
func fromDecoded(v any, strict bool) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case json.Number:
		return parseNumber(val, strict)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			conv, err := fromDecoded(elem, strict)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			conv, err := fromDecoded(elem, strict)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = conv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported decoded type %T", v)
	}
}

func parseNumber(n json.Number, strict bool) (Value, error) {
	s := string(n)
	if strings.ContainsAny(s, ".eE") {
		return nil, fmt.Errorf("%w: %s", ErrFloat, s)
	}
	i, err := n.Int64()
	if err != nil {
		return nil, fmt.Errorf("number out of int64 range: %s", s)
	}
	if strict {
		if s == "-0" {
			return nil, fmt.Errorf("negative zero is forbidden in canonical JSON")
		}
		if i > MaxSafeInt || i < MinSafeInt {
			return nil, fmt.Errorf("integer %s outside canonical JSON range", s)
		}
	}
	return Int(i), nil
}

// FromGo converts plain Go values (as produced by YAML or JSON decoding into
// interface{}) into a Value. Integral floats are accepted since some
// decoders produce float64 for every number; fractional ones are not.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case uint64:
		if val > uint64(MaxSafeInt) {
			return nil, fmt.Errorf("integer %d outside canonical JSON range", val)
		}
		return Int(val), nil
	case float64:
		if val != float64(int64(val)) {
			return nil, fmt.Errorf("%w: %v", ErrFloat, val)
		}
		return Int(int64(val)), nil
	case json.Number:
		return parseNumber(val, false)
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			conv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			conv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = conv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}
