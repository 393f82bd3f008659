package reconcile

import (
	"strings"

	"github.com/roach88/querystate/internal/codec"
	"github.com/roach88/querystate/internal/ir"
)

// carryOver recovers a value for spec from a raw value that was last
// decoded under a differently shaped spec of the same name. It applies only
// when the raw value is unchanged since the previous snapshot, so fresh
// user input is always decoded as-is.
func carryOver(prev *Snapshot, spec ir.FieldSpec, raw string) (ir.Value, bool) {
	if prev == nil || prev.Schema == nil {
		return nil, false
	}
	from, ok := prev.Schema.Field(spec.Name)
	if !ok || from.SameShape(spec) {
		return nil, false
	}
	if prevRaw, ok := prev.Raw.Get(spec.Name); !ok || prevRaw != raw {
		return nil, false
	}
	return transition(from, spec, raw)
}

// transition re-decodes raw under from, then reshapes the elements for to:
// a scalar takes element 0, a list keeps the old elements and fills the
// remaining slots from to's default, and a vector carries booleans over
// and pads from to's default.
func transition(from, to ir.FieldSpec, raw string) (ir.Value, bool) {
	old := codec.Decode(from, raw)
	if !old.Valid {
		return nil, false
	}

	switch to.Kind {
	case ir.KindScalar:
		elems := codec.Elements(from, old.Value)
		if len(elems) == 0 {
			return nil, false
		}
		res := codec.Decode(to, elems[0])
		return res.Value, res.Valid

	case ir.KindMulti:
		elems := codec.Elements(from, old.Value)
		defaults := codec.Elements(to, codec.Default(to))
		if len(elems) < len(defaults) {
			elems = append(elems, defaults[len(elems):]...)
		}
		res := codec.Decode(to, strings.Join(elems, to.Sep()))
		return res.Value, res.Valid

	case ir.KindBinaryBooleanVector:
		var carried ir.Array
		switch v := old.Value.(type) {
		case ir.Array:
			carried = v
		default:
			carried = ir.Array{v}
		}
		defaults, _ := codec.Default(to).(ir.Array)
		out := make(ir.Array, to.VectorLength)
		for i := range out {
			switch {
			case i < len(carried):
				out[i] = ir.Bool(truthy(carried[i]))
			case i < len(defaults):
				out[i] = defaults[i]
			default:
				out[i] = ir.Bool(false)
			}
		}
		return out, true
	}
	return nil, false
}

func truthy(v ir.Value) bool {
	switch val := v.(type) {
	case ir.Bool:
		return bool(val)
	case ir.Number:
		return val != 0
	case ir.String:
		return val != ""
	default:
		return false
	}
}
