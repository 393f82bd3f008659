package codec

import (
	"errors"
	"math"
	"math/big"
	"math/bits"
	"strconv"

	"github.com/roach88/querystate/internal/ir"
)

// MaxVectorLength is the widest boolean vector a single query value can hold.
const MaxVectorLength = 64

func decodeVector(spec ir.FieldSpec, raw string) Result {
	var n uint64
	wide := false
	switch raw {
	case literalTrue:
		n = 1
	case literalFalse:
		n = 0
	default:
		parsed, err := strconv.ParseUint(raw, 10, 64)
		switch {
		case errors.Is(err, strconv.ErrRange):
			n, wide = lowBits(raw), true
		case err != nil:
			return invalid(spec, ReasonInvalidNumber)
		default:
			n = parsed
		}
	}

	// 0 still occupies one binary digit.
	width := max(bits.Len64(n), 1)
	if (wide || width > spec.VectorLength) && spec.RemoveInvalidOverflow {
		return invalid(spec, ReasonOverflow)
	}
	return Result{Value: expand(n, spec.VectorLength), Valid: true}
}

// lowBits returns the low 64 bits of a decimal too wide for uint64.
func lowBits(raw string) uint64 {
	x, _ := new(big.Int).SetString(raw, 10)
	return x.And(x, new(big.Int).SetUint64(math.MaxUint64)).Uint64()
}

// expand unpacks the low length bits of n, least significant first.
// Bits above length are discarded.
func expand(n uint64, length int) ir.Array {
	arr := make(ir.Array, length)
	for i := 0; i < length; i++ {
		arr[i] = ir.Bool(i < 64 && n&(1<<uint(i)) != 0)
	}
	return arr
}

// Pack folds a boolean vector back into its integer form. Non-Bool
// elements count as false.
func Pack(v ir.Value) uint64 {
	arr, _ := v.(ir.Array)
	var n uint64
	for i, elem := range arr {
		if i >= MaxVectorLength {
			break
		}
		if b, ok := elem.(ir.Bool); ok && bool(b) {
			n |= 1 << uint(i)
		}
	}
	return n
}

func encodeVector(v ir.Value) string {
	return strconv.FormatUint(Pack(v), 10)
}
