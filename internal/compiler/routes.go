package compiler

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/roach88/querystate/internal/ir"
)

// Document is a compiled route configuration file.
type Document struct {
	Options ir.Options      `json:"options"`
	Routes  []*ir.RouteNode `json:"routes"`
}

// Chain returns the node chain addressed by route, or nil.
func (d *Document) Chain(route string) []*ir.RouteNode {
	return ir.Chain(d.Routes, route)
}

// compileDocument lowers a top-level mapping:
//
//	options: { debug, useCompression, compressionKey }
//	routes:  [ { path, config, children } ]
func compileDocument(root mapping) (*Document, error) {
	if err := root.check("document", "options", "routes"); err != nil {
		return nil, err
	}

	doc := &Document{}
	if e, ok := root.get("options"); ok {
		opts, err := compileOptions(e)
		if err != nil {
			return nil, err
		}
		doc.Options = opts
	}

	e, ok := root.get("routes")
	if !ok {
		return nil, root.pos.errorf("routes", "routes is required")
	}
	routes, err := compileRoutes("routes", e)
	if err != nil {
		return nil, err
	}
	doc.Routes = routes
	return doc, nil
}

func compileOptions(e entry) (ir.Options, error) {
	var opts ir.Options
	m, ok := e.val.(mapping)
	if !ok {
		return opts, e.pos.errorf("options", "must be a mapping, got %s", describe(e.val))
	}
	if err := m.check("options", "debug", "useCompression", "compressionKey"); err != nil {
		return opts, err
	}

	debug, err := m.boolFlag("options", "debug")
	if err != nil {
		return opts, err
	}
	compress, err := m.boolFlag("options", "useCompression")
	if err != nil {
		return opts, err
	}
	key, _, err := m.str("options", "compressionKey")
	if err != nil {
		return opts, err
	}

	opts.Debug = debug != nil && *debug
	opts.UseCompression = compress != nil && *compress
	opts.CompressionKey = key
	return opts, nil
}

func compileRoutes(field string, e entry) ([]*ir.RouteNode, error) {
	list, ok := e.val.([]any)
	if !ok {
		return nil, e.pos.errorf(field, "must be a list, got %s", describe(e.val))
	}

	nodes := make([]*ir.RouteNode, 0, len(list))
	for i, item := range list {
		m, ok := item.(mapping)
		if !ok {
			return nil, e.pos.errorf(fmt.Sprintf("%s[%d]", field, i), "must be a mapping, got %s", describe(item))
		}
		node, err := compileRoute(fmt.Sprintf("%s[%d]", field, i), m)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func compileRoute(field string, m mapping) (*ir.RouteNode, error) {
	if err := m.check(field, "path", "config", "children"); err != nil {
		return nil, err
	}

	path, _, err := m.str(field, "path")
	if err != nil {
		return nil, err
	}
	node := &ir.RouteNode{Path: path}

	if e, ok := m.get("config"); ok {
		cfg, err := compileConfig(field+".config", e)
		if err != nil {
			return nil, err
		}
		node.Config = cfg
	}
	if e, ok := m.get("children"); ok {
		children, err := compileRoutes(field+".children", e)
		if err != nil {
			return nil, err
		}
		node.Children = children
	}
	return node, nil
}

func compileConfig(field string, e entry) (*ir.StateConfig, error) {
	m, ok := e.val.(mapping)
	if !ok {
		return nil, e.pos.errorf(field, "must be a mapping, got %s", describe(e.val))
	}
	if err := m.check(field, "removeUnknown", "caseSensitive", "inherit", "noQueryParams", "stateConfig"); err != nil {
		return nil, err
	}

	cfg := &ir.StateConfig{}
	flags := []struct {
		key string
		dst **bool
	}{
		{"removeUnknown", &cfg.RemoveUnknownKeys},
		{"caseSensitive", &cfg.CaseSensitiveMatching},
		{"inherit", &cfg.InheritFromAncestors},
		{"noQueryParams", &cfg.SuppressQueryParams},
	}
	for _, f := range flags {
		b, err := m.boolFlag(field, f.key)
		if err != nil {
			return nil, err
		}
		*f.dst = b
	}

	sc, ok := m.get("stateConfig")
	if !ok {
		return cfg, nil
	}
	fields, isMapping := sc.val.(mapping)
	if !isMapping {
		return nil, sc.pos.errorf(field+".stateConfig", "must be a mapping, got %s", describe(sc.val))
	}
	for _, fe := range fields.entries {
		spec, err := compileField(field+".stateConfig."+fe.key, fe)
		if err != nil {
			return nil, err
		}
		cfg.Fields = append(cfg.Fields, spec)
	}
	return cfg, nil
}

// compileField lowers one stateConfig entry. A bare literal is shorthand
// for a scalar field whose converter follows the literal's type; a
// mapping is the full form.
//
// Structural mistakes that still yield a FieldSpec (an array default, a
// non-string multi default) compile, so that resolution can drop the field
// and ValidateTree can report it.
func compileField(field string, e entry) (ir.FieldSpec, error) {
	spec := ir.FieldSpec{Name: e.key, Kind: ir.KindScalar}

	m, isMapping := e.val.(mapping)
	if !isMapping {
		def, err := toValue(field, e.pos, e.val)
		if err != nil {
			return spec, err
		}
		spec.Default = def
		spec.Converter = inferConverter(e.val)
		return spec, nil
	}

	if err := m.check(field, "value", "typeConvertor", "multi", "separator", "count", "length", "removeInvalid", "allowedValues"); err != nil {
		return spec, err
	}

	valueEntry, hasValue := m.get("value")
	if hasValue {
		def, err := toValue(field+".value", valueEntry.pos, valueEntry.val)
		if err != nil {
			return spec, err
		}
		spec.Default = def
	}

	name, hasConverter, err := m.str(field, "typeConvertor")
	if err != nil {
		return spec, err
	}
	if hasConverter {
		// An unknown name leaves the converter unset; resolution drops
		// the field with an E102 issue.
		spec.Converter, _ = ir.ParseConverter(name)
	} else {
		spec.Converter = inferConverter(valueEntry.val)
	}

	if e, ok := m.get("allowedValues"); ok {
		list, isList := e.val.([]any)
		if !isList {
			return spec, e.pos.errorf(field+".allowedValues", "must be a list, got %s", describe(e.val))
		}
		spec.AllowedValues = make([]ir.Value, 0, len(list))
		for i, item := range list {
			v, err := toValue(fmt.Sprintf("%s.allowedValues[%d]", field, i), e.pos, item)
			if err != nil {
				return spec, err
			}
			spec.AllowedValues = append(spec.AllowedValues, v)
		}
	}

	multi, err := m.boolFlag(field, "multi")
	if err != nil {
		return spec, err
	}
	if multi == nil || !*multi {
		return spec, nil
	}

	if _, isNumber := spec.Default.(ir.Number); isNumber && spec.Converter == ir.ConvertBoolean {
		return compileVector(field, m, spec)
	}

	spec.Kind = ir.KindMulti
	if spec.Separator, _, err = m.str(field, "separator"); err != nil {
		return spec, err
	}
	if spec.Count, _, err = m.integer(field, "count"); err != nil {
		return spec, err
	}
	return spec, nil
}

// compileVector finishes a multi Boolean field with a numeric default,
// which is carried as a binary boolean vector. An omitted length is the
// default's bit length.
func compileVector(field string, m mapping, spec ir.FieldSpec) (ir.FieldSpec, error) {
	spec.Kind = ir.KindBinaryBooleanVector

	length, hasLength, err := m.integer(field, "length")
	if err != nil {
		return spec, err
	}
	if !hasLength {
		length = 1
		if n := float64(spec.Default.(ir.Number)); n > 0 && n == math.Trunc(n) && n < math.MaxUint64 {
			length = max(bits.Len64(uint64(n)), 1)
		}
	}
	spec.VectorLength = length

	remove, err := m.boolFlag(field, "removeInvalid")
	if err != nil {
		return spec, err
	}
	spec.RemoveInvalidOverflow = remove != nil && *remove
	return spec, nil
}

func inferConverter(v any) ir.Converter {
	switch v.(type) {
	case float64:
		return ir.ConvertNumber
	case bool:
		return ir.ConvertBoolean
	default:
		return ir.ConvertString
	}
}

func toValue(field string, pos position, v any) (ir.Value, error) {
	if _, isMapping := v.(mapping); isMapping {
		return nil, pos.errorf(field, "values must be scalars or lists, got mapping")
	}
	if list, isList := v.([]any); isList {
		for _, item := range list {
			if _, isMapping := item.(mapping); isMapping {
				return nil, pos.errorf(field, "values must be scalars or lists, got mapping")
			}
		}
	}
	val, err := ir.FromAny(v)
	if err != nil {
		return nil, pos.errorf(field, "%v", err)
	}
	return val, nil
}
