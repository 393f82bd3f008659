package codec

import (
	"fmt"

	"github.com/roach88/querystate/internal/ir"
)

// Issue codes for malformed field specifications. A field with any issue is
// dropped from the effective schema.
const (
	CodeEmptyName        = "E101"
	CodeUnknownConverter = "E102"
	CodeMultiDefault     = "E103"
	CodeArrayDefault     = "E104"
	CodeVectorDefault    = "E105"
	CodeVectorLength     = "E106"
	CodeVectorConverter  = "E107"
	CodeNegativeCount    = "E108"
	CodeMissingValue     = "E109"
	CodeAllowedValue     = "E110"
	CodeDuplicateField   = "E111"
	CodeUnknownKind      = "E112"
)

// Issue describes one problem with a field specification.
type Issue struct {
	Field   string
	Code    string
	Message string
}

func (i Issue) Error() string {
	return fmt.Sprintf("[%s] field %q: %s", i.Code, i.Field, i.Message)
}

// Validate checks spec for structural problems.
func Validate(spec ir.FieldSpec) []Issue {
	var issues []Issue
	add := func(code, format string, args ...any) {
		issues = append(issues, Issue{Field: spec.Name, Code: code, Message: fmt.Sprintf(format, args...)})
	}

	if spec.Name == "" {
		add(CodeEmptyName, "field name is empty")
	}
	switch spec.Converter {
	case ir.ConvertString, ir.ConvertNumber, ir.ConvertBoolean:
	default:
		add(CodeUnknownConverter, "unknown type converter %s", spec.Converter)
	}
	if _, isArray := spec.Default.(ir.Array); isArray {
		add(CodeArrayDefault, "default must not be an array")
	}
	for _, v := range spec.AllowedValues {
		if _, isArray := v.(ir.Array); isArray {
			add(CodeAllowedValue, "allowed values must be scalars, got %s", ir.Describe(v))
		}
	}

	switch spec.Kind {
	case ir.KindScalar:
		validateScalar(spec, add)
	case ir.KindMulti:
		validateMulti(spec, add)
	case ir.KindBinaryBooleanVector:
		validateVector(spec, add)
	default:
		add(CodeUnknownKind, "unknown field kind %s", spec.Kind)
	}
	return issues
}

type addFunc func(code, format string, args ...any)

func validateScalar(spec ir.FieldSpec, add addFunc) {
	if spec.Default == nil {
		add(CodeMissingValue, "scalar field has no default value")
	}
}

func validateMulti(spec ir.FieldSpec, add addFunc) {
	switch spec.Default.(type) {
	case nil, ir.Null, ir.String, ir.Array:
	default:
		add(CodeMultiDefault, "multi field default must be a delimited string, got %s", ir.Describe(spec.Default))
	}
	if spec.Count < 0 {
		add(CodeNegativeCount, "count must not be negative, got %d", spec.Count)
	}
}

func validateVector(spec ir.FieldSpec, add addFunc) {
	if spec.Converter != ir.ConvertBoolean {
		add(CodeVectorConverter, "boolean vector requires the Boolean converter, got %s", spec.Converter)
	}
	n, ok := spec.Default.(ir.Number)
	if !ok || n < 0 || float64(n) != float64(uint64(n)) {
		add(CodeVectorDefault, "boolean vector default must be a non-negative integer, got %s", ir.Describe(spec.Default))
	}
	if spec.VectorLength < 1 || spec.VectorLength > MaxVectorLength {
		add(CodeVectorLength, "vector length must be between 1 and %d, got %d", MaxVectorLength, spec.VectorLength)
	}
}
