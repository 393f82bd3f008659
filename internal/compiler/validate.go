package compiler

import (
	"fmt"

	"github.com/roach88/querystate/internal/codec"
	"github.com/roach88/querystate/internal/ir"
)

// Validation error codes (E100-E199). E101-E112 are field specification
// issues shared with schema resolution, which drops the offending field.
const (
	ErrEmptyName        = codec.CodeEmptyName
	ErrUnknownConverter = codec.CodeUnknownConverter
	ErrMultiDefault     = codec.CodeMultiDefault
	ErrArrayDefault     = codec.CodeArrayDefault
	ErrVectorDefault    = codec.CodeVectorDefault
	ErrVectorLength     = codec.CodeVectorLength
	ErrVectorConverter  = codec.CodeVectorConverter
	ErrNegativeCount    = codec.CodeNegativeCount
	ErrMissingValue     = codec.CodeMissingValue
	ErrAllowedValue     = codec.CodeAllowedValue
	ErrDuplicateField   = codec.CodeDuplicateField
	ErrUnknownKind      = codec.CodeUnknownKind

	// Route tree errors (E120-E129)
	ErrDuplicateRoute = "E120" // sibling routes share a path
	ErrCompressionKey = "E121" // compression key is not URL-safe
)

// ValidationError represents a route configuration problem.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidateTree checks a compiled document. Returns all errors found
// (does not fail-fast).
func ValidateTree(doc *Document) []ValidationError {
	var errs []ValidationError

	if key := doc.Options.CompressionKey; key != "" && ir.EscapeQueryComponent(key) != key {
		errs = append(errs, ValidationError{
			Field:   "options.compressionKey",
			Message: fmt.Sprintf("%q must not need escaping in a query string", key),
			Code:    ErrCompressionKey,
		})
	}

	return append(errs, validateRoutes("routes", doc.Routes)...)
}

func validateRoutes(field string, nodes []*ir.RouteNode) []ValidationError {
	var errs []ValidationError
	paths := make(map[string]bool, len(nodes))

	for i, node := range nodes {
		nodeField := fmt.Sprintf("%s[%d]", field, i)

		// E120: sibling routes must be distinguishable
		if paths[node.Path] {
			errs = append(errs, ValidationError{
				Field:   nodeField + ".path",
				Message: fmt.Sprintf("duplicate route path %q", node.Path),
				Code:    ErrDuplicateRoute,
			})
		}
		paths[node.Path] = true

		errs = append(errs, validateConfig(nodeField+".config", node.Config)...)
		errs = append(errs, validateRoutes(nodeField+".children", node.Children)...)
	}
	return errs
}

func validateConfig(field string, cfg *ir.StateConfig) []ValidationError {
	if cfg == nil {
		return nil
	}

	var errs []ValidationError
	names := make(map[string]bool, len(cfg.Fields))
	for _, spec := range cfg.Fields {
		specField := field + ".stateConfig." + spec.Name

		// E111: a name may be declared once per route
		if names[spec.Name] {
			errs = append(errs, ValidationError{
				Field:   specField,
				Message: "field declared twice on one route",
				Code:    ErrDuplicateField,
			})
		}
		names[spec.Name] = true

		for _, issue := range codec.Validate(spec) {
			errs = append(errs, ValidationError{Field: specField, Message: issue.Message, Code: issue.Code})
		}
	}
	return errs
}
