package codec

import (
	"strings"

	"github.com/roach88/querystate/internal/ir"
)

// Reasons reported on invalid results.
const (
	ReasonInvalidNumber  = "Invalid number"
	ReasonInvalidString  = "Invalid string"
	ReasonInvalidBoolean = "Invalid boolean"
	ReasonNotAllowed     = "Not allowed"
	ReasonOverflow       = "Overflow"
)

// Result is the outcome of decoding one raw value.
type Result struct {
	// Value is the decoded value, or the field default when !Valid.
	Value ir.Value

	// Valid is false when the raw value was rejected.
	Valid bool

	// Reason explains a rejection.
	Reason string
}

func invalid(spec ir.FieldSpec, reason string) Result {
	return Result{Value: Default(spec), Valid: false, Reason: reason}
}

// Decode decodes raw under spec.
func Decode(spec ir.FieldSpec, raw string) Result {
	switch spec.Kind {
	case ir.KindMulti:
		return decodeMulti(spec, raw)
	case ir.KindBinaryBooleanVector:
		return decodeVector(spec, raw)
	default:
		return decodeScalar(spec, raw)
	}
}

func decodeScalar(spec ir.FieldSpec, raw string) Result {
	v, ok := convert(spec.Converter, raw)
	if !ok {
		return invalid(spec, invalidReason(spec.Converter))
	}
	if !allowed(spec, v) {
		return invalid(spec, ReasonNotAllowed)
	}
	return Result{Value: v, Valid: true}
}

func decodeMulti(spec ir.FieldSpec, raw string) Result {
	arr := ir.Array{}
	if raw != "" {
		for _, part := range strings.Split(raw, spec.Sep()) {
			v, ok := convert(spec.Converter, part)
			if !ok {
				return invalid(spec, invalidReason(spec.Converter))
			}
			if !allowed(spec, v) {
				return invalid(spec, ReasonNotAllowed)
			}
			arr = append(arr, v)
		}
	}
	return Result{Value: fit(spec, arr), Valid: true}
}

func allowed(spec ir.FieldSpec, v ir.Value) bool {
	return spec.AllowedValues == nil || ir.Contains(spec.AllowedValues, v)
}

// fit pads or truncates arr to spec.Count. Padding takes the default
// element at the same index when there is one.
func fit(spec ir.FieldSpec, arr ir.Array) ir.Array {
	if spec.Count <= 0 {
		return arr
	}
	if len(arr) >= spec.Count {
		return arr[:spec.Count:spec.Count]
	}

	defaults := defaultElements(spec)
	out := make(ir.Array, spec.Count)
	copy(out, arr)
	for i := len(arr); i < spec.Count; i++ {
		if i < len(defaults) {
			out[i] = defaults[i]
		} else {
			out[i] = zero(spec.Converter)
		}
	}
	return out
}

// Encode renders v as the raw query value for spec.
func Encode(spec ir.FieldSpec, v ir.Value) string {
	switch spec.Kind {
	case ir.KindMulti:
		return strings.Join(Elements(spec, v), spec.Sep())
	case ir.KindBinaryBooleanVector:
		return encodeVector(v)
	default:
		return formatScalar(v)
	}
}

// Elements renders each element of an array value as its raw form.
// Scalars yield a single element; Null and unset yield none.
func Elements(spec ir.FieldSpec, v ir.Value) []string {
	switch val := v.(type) {
	case nil, ir.Null:
		return nil
	case ir.Array:
		out := make([]string, len(val))
		for i, elem := range val {
			out[i] = formatScalar(elem)
		}
		return out
	default:
		return []string{formatScalar(val)}
	}
}

// Default returns the fully expanded default for spec: multi defaults are
// split, converted and fitted to Count; vector defaults are expanded to
// VectorLength booleans. An unset scalar default is Null.
func Default(spec ir.FieldSpec) ir.Value {
	switch spec.Kind {
	case ir.KindMulti:
		if _, isNull := spec.Default.(ir.Null); isNull {
			return ir.Null{}
		}
		return fit(spec, defaultElements(spec))
	case ir.KindBinaryBooleanVector:
		n, _ := spec.Default.(ir.Number)
		return expand(uint64(n), spec.VectorLength)
	default:
		if spec.Default == nil {
			return ir.Null{}
		}
		return spec.Default
	}
}

// defaultElements converts a multi default string into elements without
// count fitting. Elements that do not convert become zero values.
func defaultElements(spec ir.FieldSpec) ir.Array {
	s, ok := spec.Default.(ir.String)
	if !ok || s == "" {
		return ir.Array{}
	}
	parts := strings.Split(string(s), spec.Sep())
	arr := make(ir.Array, len(parts))
	for i, part := range parts {
		v, ok := convert(spec.Converter, part)
		if !ok {
			v = zero(spec.Converter)
		}
		arr[i] = v
	}
	return arr
}

// Canonical returns the raw form a URL must carry for the decoded value of
// raw. ok is false when raw is invalid.
func Canonical(spec ir.FieldSpec, raw string) (string, bool) {
	res := Decode(spec, raw)
	if !res.Valid {
		return "", false
	}
	return Encode(spec, res.Value), true
}
