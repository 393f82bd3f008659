package ir

import (
	"fmt"
	"strings"
)

// Kind classifies how a field is carried in the query string.
type Kind int

const (
	// KindScalar is a single converted value: ?pageSize=30
	KindScalar Kind = iota + 1
	// KindMulti is a separator-delimited list: ?page=1;2;3
	KindMulti
	// KindBinaryBooleanVector packs booleans into the bits of one integer: ?openToggles=60
	KindBinaryBooleanVector
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindMulti:
		return "multi"
	case KindBinaryBooleanVector:
		return "binary_boolean_vector"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Converter is the type conversion applied to each raw string.
type Converter int

const (
	ConvertString Converter = iota + 1
	ConvertNumber
	ConvertBoolean
)

func (c Converter) String() string {
	switch c {
	case ConvertString:
		return "String"
	case ConvertNumber:
		return "Number"
	case ConvertBoolean:
		return "Boolean"
	default:
		return fmt.Sprintf("converter(%d)", int(c))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Converter) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ParseConverter maps a configuration name ("String", "Number", "Boolean")
// to a Converter. Matching is case-insensitive.
func ParseConverter(name string) (Converter, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "string":
		return ConvertString, true
	case "number":
		return ConvertNumber, true
	case "boolean", "bool":
		return ConvertBoolean, true
	default:
		return 0, false
	}
}

// DefaultSeparator is used by multi fields that do not configure one.
const DefaultSeparator = ";"

// FieldSpec is one field's contract.
type FieldSpec struct {
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	Converter Converter `json:"converter"`

	// Default is the configured raw default: a scalar literal, a delimited
	// string for multi fields, or a Number bitmask for boolean vectors.
	// nil means the default was not configured at all.
	Default Value `json:"default,omitempty"`

	Separator string `json:"separator,omitempty"`

	// Count is the target array length for multi fields. Zero means unset.
	Count int `json:"count,omitempty"`

	// VectorLength is the bit count of a boolean vector.
	VectorLength int `json:"vector_length,omitempty"`

	// RemoveInvalidOverflow rejects boolean vectors wider than VectorLength
	// instead of truncating them.
	RemoveInvalidOverflow bool `json:"remove_invalid_overflow,omitempty"`

	// AllowedValues is a whitelist. nil means any value is accepted.
	AllowedValues []Value `json:"allowed_values,omitempty"`
}

// Sep returns the configured separator or DefaultSeparator.
func (f FieldSpec) Sep() string {
	if f.Separator == "" {
		return DefaultSeparator
	}
	return f.Separator
}

// SameShape reports whether two specs decode a raw value into the same
// shape. Used to detect schema transitions between route nodes.
func (f FieldSpec) SameShape(other FieldSpec) bool {
	if f.Kind != other.Kind {
		return false
	}
	switch f.Kind {
	case KindBinaryBooleanVector:
		return f.VectorLength == other.VectorLength
	case KindMulti:
		return f.Sep() == other.Sep()
	default:
		return true
	}
}

// Flag returns a pointer to b, for optional StateConfig options.
func Flag(b bool) *bool {
	return &b
}

// StateConfig is a route node's contribution to the effective schema.
//
// Options are pointers so that "not set" can be told apart from "set to the
// default" when folding ancestors.
type StateConfig struct {
	Fields []FieldSpec `json:"fields"`

	RemoveUnknownKeys     *bool `json:"remove_unknown_keys,omitempty"`
	CaseSensitiveMatching *bool `json:"case_sensitive_matching,omitempty"`
	InheritFromAncestors  *bool `json:"inherit_from_ancestors,omitempty"`
	SuppressQueryParams   *bool `json:"suppress_query_params,omitempty"`
}

// Field looks up a field by name.
func (c *StateConfig) Field(name string) (FieldSpec, bool) {
	if c == nil {
		return FieldSpec{}, false
	}
	for _, f := range c.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// RemoveUnknown reports the resolved removeUnknownKeys option (default false).
func (c *StateConfig) RemoveUnknown() bool {
	return c != nil && c.RemoveUnknownKeys != nil && *c.RemoveUnknownKeys
}

// CaseSensitive reports the resolved caseSensitiveMatching option (default true).
func (c *StateConfig) CaseSensitive() bool {
	return c == nil || c.CaseSensitiveMatching == nil || *c.CaseSensitiveMatching
}

// Inherit reports the resolved inheritFromAncestors option (default true).
func (c *StateConfig) Inherit() bool {
	return c == nil || c.InheritFromAncestors == nil || *c.InheritFromAncestors
}

// Suppress reports the resolved suppressQueryParams option (default false).
func (c *StateConfig) Suppress() bool {
	return c != nil && c.SuppressQueryParams != nil && *c.SuppressQueryParams
}

// RouteNode mirrors one level of the navigable path hierarchy.
// A tree is built once at configuration time and never mutated.
type RouteNode struct {
	Path     string       `json:"path"`
	Config   *StateConfig `json:"config,omitempty"`
	Children []*RouteNode `json:"children,omitempty"`
}

// Chain returns the root-to-leaf node chain addressed by route, a
// slash-separated list of node paths. Nodes with an empty Path wrap their
// children without consuming a segment, and a node whose path is fully
// consumed is followed by its empty-path descendants. Returns nil if the
// route addresses no node.
//
// This is configuration addressing for tools and tests, not URL matching:
// segments compare literally.
func Chain(roots []*RouteNode, route string) []*RouteNode {
	route = strings.Trim(route, "/")
	var segments []string
	if route != "" {
		segments = strings.Split(route, "/")
	}
	return chain(roots, segments)
}

func chain(level []*RouteNode, segments []string) []*RouteNode {
	for _, n := range level {
		rest, ok := consume(n.Path, segments)
		if !ok {
			continue
		}
		if len(rest) == 0 {
			return append([]*RouteNode{n}, chain(n.Children, nil)...)
		}
		if sub := chain(n.Children, rest); sub != nil {
			return append([]*RouteNode{n}, sub...)
		}
	}
	return nil
}

// consume strips a node path's segments from the front of segments.
func consume(path string, segments []string) ([]string, bool) {
	if path == "" {
		return segments, true
	}
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) > len(segments) {
		return nil, false
	}
	for i, p := range parts {
		if p != segments[i] {
			return nil, false
		}
	}
	return segments[len(parts):], true
}

// Options is the engine-wide configuration surface.
type Options struct {
	// Debug enables non-fatal diagnostic warnings.
	Debug bool `json:"debug"`

	// UseCompression carries the whole query as one compressed parameter.
	UseCompression bool `json:"use_compression"`

	// CompressionKey names the compressed parameter. Defaults to "q".
	CompressionKey string `json:"compression_key,omitempty"`
}

// DefaultCompressionKey is the parameter name used in compressed mode.
const DefaultCompressionKey = "q"

// Key returns the effective compression key.
func (o Options) Key() string {
	if o.CompressionKey == "" {
		return DefaultCompressionKey
	}
	return o.CompressionKey
}

// OutcomeKind distinguishes the two terminal reconcile states.
type OutcomeKind int

const (
	// OutcomeReconciled means the state is exactly reproducible from the URL.
	OutcomeReconciled OutcomeKind = iota + 1
	// OutcomeRedirect means a corrective navigation is required first.
	OutcomeRedirect
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeReconciled:
		return "reconciled"
	case OutcomeRedirect:
		return "redirect"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k OutcomeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// NavigationRequest asks the navigation subsystem to move to Target.
type NavigationRequest struct {
	// Token correlates the follow-up navigation event with this request.
	Token string `json:"token"`

	// Target is the full location (path plus encoded query).
	Target string `json:"target"`

	// Reason is "redirect", "strip" or "guard".
	Reason string `json:"reason"`
}

// Navigation request reasons.
const (
	ReasonRedirect = "redirect"
	ReasonStrip    = "strip"
	ReasonGuard    = "guard"
)
