package codec

import (
	"math"
	"strconv"
	"strings"

	"github.com/roach88/querystate/internal/ir"
)

// Literal boolean spellings recognized by the Boolean converter.
const (
	literalTrue  = "true"
	literalFalse = "false"
)

// convert applies a converter to one raw string.
// The second return is false when the conversion is not a valid value of
// the target type.
func convert(c ir.Converter, raw string) (ir.Value, bool) {
	switch c {
	case ir.ConvertNumber:
		return parseNumber(raw)
	case ir.ConvertBoolean:
		switch raw {
		case literalTrue:
			return ir.Bool(true), true
		case literalFalse:
			return ir.Bool(false), true
		}
		// Any other non-empty text is truthy.
		return ir.Bool(raw != ""), true
	default:
		return ir.String(raw), true
	}
}

// parseNumber follows Number(string): surrounding whitespace is ignored
// and blank input is zero. Infinities are rejected along with NaN, since
// state must serialize as canonical JSON.
func parseNumber(raw string) (ir.Value, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ir.Number(0), true
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	// Only decimal text is a number; reject hex floats and digit separators.
	if strings.ContainsAny(trimmed, "xXpP_") {
		return nil, false
	}
	return ir.Number(f), true
}

// formatScalar renders one scalar the way it appears in a URL.
func formatScalar(v ir.Value) string {
	switch val := v.(type) {
	case ir.String:
		return string(val)
	case ir.Number:
		return ir.FormatNumber(float64(val))
	case ir.Bool:
		if val {
			return literalTrue
		}
		return literalFalse
	default:
		return ""
	}
}

// zero is the padding value used for a converter.
func zero(c ir.Converter) ir.Value {
	switch c {
	case ir.ConvertNumber:
		return ir.Number(0)
	case ir.ConvertBoolean:
		return ir.Bool(false)
	default:
		return ir.String("")
	}
}

func invalidReason(c ir.Converter) string {
	switch c {
	case ir.ConvertNumber:
		return ReasonInvalidNumber
	case ir.ConvertBoolean:
		return ReasonInvalidBoolean
	default:
		return ReasonInvalidString
	}
}
