package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf16"
)

// Value is a sealed interface representing a decoded query value.
// Only Null, String, Number, Bool and Array implement it.
//
// A nil Value (the Go zero value of the interface) means "unset" and is
// distinct from Null, which is the explicit empty-state sentinel.
type Value interface {
	value() // Sealed - only these types implement it
}

// Null is the explicit empty-state sentinel.
type Null struct{}

func (Null) value() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String is a string query value.
type String string

func (String) value() {}

// Number is a numeric query value. Numbers follow JavaScript semantics
// (IEEE-754 double), so integers and fractions share one type.
type Number float64

func (Number) value() {}

// MarshalJSON renders the number the same way it is rendered in a URL.
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number %v", f)
	}
	return []byte(FormatNumber(f)), nil
}

// Bool is a boolean query value.
type Bool bool

func (Bool) value() {}

// Array holds the elements of a multi-value or boolean-vector field.
type Array []Value

func (Array) value() {}

// Bools builds an Array of Bool values.
func Bools(bs ...bool) Array {
	arr := make(Array, len(bs))
	for i, b := range bs {
		arr[i] = Bool(b)
	}
	return arr
}

// Numbers builds an Array of Number values.
func Numbers(ns ...float64) Array {
	arr := make(Array, len(ns))
	for i, n := range ns {
		arr[i] = Number(n)
	}
	return arr
}

// Strings builds an Array of String values.
func Strings(ss ...string) Array {
	arr := make(Array, len(ss))
	for i, s := range ss {
		arr[i] = String(s)
	}
	return arr
}

// Equal reports whether two values are structurally equal.
// Two unset (nil) values are equal; nil never equals Null.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case Null:
		_, ok := b.(Null)
		return ok
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Contains reports whether v is a member of set.
func Contains(set []Value, v Value) bool {
	for _, candidate := range set {
		if Equal(candidate, v) {
			return true
		}
	}
	return false
}

// FormatNumber renders f the way JavaScript's Number#toString does for
// finite values: plain digits between 1e-6 and 1e21, exponent form outside.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	// Go renders "1e-07"; JavaScript renders "1e-7".
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mantissa, exp, _ := strings.Cut(s, "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	return mantissa + "e" + sign + digits
}

// Describe renders a value for logs and CLI output.
func Describe(v Value) string {
	switch val := v.(type) {
	case nil:
		return "<unset>"
	case Null:
		return "null"
	case String:
		return strconv.Quote(string(val))
	case Number:
		return FormatNumber(float64(val))
	case Bool:
		return strconv.FormatBool(bool(val))
	case Array:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = Describe(elem)
		}
		return "[" + strings.Join(parts, ",") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FromAny converts a plain Go value (as produced by encoding/json, yaml.v3
// or CUE decoding) into a Value. A nil input yields Null.
func FromAny(v any) (Value, error) {
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
		return Number(val), nil
	case int64:
		return Number(val), nil
	case uint64:
		return Number(val), nil
	case float64:
		return Number(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, err
		}
		return Number(f), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			converted, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = converted
		}
		return arr, nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// State is the canonical typed key -> value map observed by the application.
// A State is never mutated after publication; use Clone to derive a new one.
type State map[string]Value

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
func (s State) SortedKeys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Clone returns a shallow copy of the state. Values are immutable, so a
// shallow copy is sufficient.
func (s State) Clone() State {
	if s == nil {
		return nil
	}
	out := make(State, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Equal reports whether both states hold the same keys and values.
func (s State) Equal(other State) bool {
	if len(s) != len(other) {
		return false
	}
	for k, v := range s {
		ov, ok := other[k]
		if !ok || !Equal(v, ov) {
			return false
		}
	}
	return true
}

// MarshalJSON implements json.Marshaler for State with sorted keys.
func (s State) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := json.Marshal(s[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler for State.
func (s *State) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*s = make(State, len(raw))
	for k, v := range raw {
		val, err := unmarshalValue(v)
		if err != nil {
			return fmt.Errorf("state key %q: %w", k, err)
		}
		(*s)[k] = val
	}
	return nil
}

// unmarshalValue decodes a JSON value into the appropriate Value type.
func unmarshalValue(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return nil, err
		}
		return String(str), nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil

	case 'n':
		return Null{}, nil

	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		arr := make(Array, len(raw))
		for i, elem := range raw {
			val, err := unmarshalValue(elem)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			arr[i] = val
		}
		return arr, nil

	case '{':
		return nil, fmt.Errorf("objects are not valid query values")

	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		f, err := n.Float64()
		if err != nil {
			return nil, err
		}
		return Number(f), nil
	}
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
