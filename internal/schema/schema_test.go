package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querystate/internal/codec"
	"github.com/roach88/querystate/internal/ir"
)

func num(name string, def float64) ir.FieldSpec {
	return ir.FieldSpec{Name: name, Kind: ir.KindScalar, Converter: ir.ConvertNumber, Default: ir.Number(def)}
}

func str(name, def string) ir.FieldSpec {
	return ir.FieldSpec{Name: name, Kind: ir.KindScalar, Converter: ir.ConvertString, Default: ir.String(def)}
}

func names(cfg *ir.StateConfig) []string {
	out := make([]string, len(cfg.Fields))
	for i, f := range cfg.Fields {
		out[i] = f.Name
	}
	return out
}

func TestResolveEmptyChain(t *testing.T) {
	res := Resolve(nil)
	require.NotNil(t, res.Effective)
	assert.Empty(t, res.Effective.Fields)
}

func TestResolveNilLeafConfig(t *testing.T) {
	root := &ir.RouteNode{Path: "", Config: &ir.StateConfig{Fields: []ir.FieldSpec{num("pageSize", 30)}}}
	leaf := &ir.RouteNode{Path: "users"}

	res := Resolve([]*ir.RouteNode{root, leaf})
	// A leaf without config inherits by default.
	assert.Equal(t, []string{"pageSize"}, names(res.Effective))
}

func TestResolveDescendantPriority(t *testing.T) {
	root := &ir.RouteNode{Path: "", Config: &ir.StateConfig{
		Fields:            []ir.FieldSpec{num("pageSize", 30), str("filter", "")},
		RemoveUnknownKeys: ir.Flag(true),
	}}
	mid := &ir.RouteNode{Path: "users", Config: &ir.StateConfig{
		Fields: []ir.FieldSpec{num("pageSize", 10), str("role", "ADMIN")},
	}}
	leaf := &ir.RouteNode{Path: "todos", Config: &ir.StateConfig{
		Fields:            []ir.FieldSpec{num("pageSize", 5)},
		RemoveUnknownKeys: ir.Flag(false),
	}}

	res := Resolve([]*ir.RouteNode{root, mid, leaf})

	assert.Equal(t, []string{"pageSize", "role", "filter"}, names(res.Effective))
	f, _ := res.Effective.Field("pageSize")
	assert.Equal(t, ir.Number(5), f.Default)
	assert.False(t, res.Effective.RemoveUnknown())

	require.Len(t, res.Warnings, 2)
	assert.Equal(t, Warning{Node: "users", Keys: []string{"pageSize"}}, res.Warnings[0])
	assert.Equal(t, Warning{Node: "", Keys: []string{"pageSize", "removeUnknown"}}, res.Warnings[1])
}

func TestResolveOptionsInheritedWhenUnset(t *testing.T) {
	root := &ir.RouteNode{Config: &ir.StateConfig{CaseSensitiveMatching: ir.Flag(false), SuppressQueryParams: ir.Flag(true)}}
	leaf := &ir.RouteNode{Path: "x", Config: &ir.StateConfig{}}

	res := Resolve([]*ir.RouteNode{root, leaf})
	assert.False(t, res.Effective.CaseSensitive())
	assert.True(t, res.Effective.Suppress())
	assert.Empty(t, res.Warnings)
}

func TestResolveNoInherit(t *testing.T) {
	root := &ir.RouteNode{Config: &ir.StateConfig{Fields: []ir.FieldSpec{num("pageSize", 30)}}}
	leaf := &ir.RouteNode{Path: "x", Config: &ir.StateConfig{
		Fields:               []ir.FieldSpec{str("filter", "")},
		InheritFromAncestors: ir.Flag(false),
	}}

	res := Resolve([]*ir.RouteNode{root, leaf})
	assert.Equal(t, []string{"filter"}, names(res.Effective))
	assert.Empty(t, res.Warnings)
}

func TestResolveSkipsAncestorsWithoutConfig(t *testing.T) {
	root := &ir.RouteNode{Config: &ir.StateConfig{Fields: []ir.FieldSpec{num("a", 1)}}}
	bare := &ir.RouteNode{Path: "bare"}
	leaf := &ir.RouteNode{Path: "leaf", Config: &ir.StateConfig{Fields: []ir.FieldSpec{num("b", 2)}}}

	res := Resolve([]*ir.RouteNode{root, bare, leaf})
	assert.Equal(t, []string{"b", "a"}, names(res.Effective))
}

func TestResolveDropsMalformedFields(t *testing.T) {
	bad := ir.FieldSpec{Name: "page", Kind: ir.KindMulti, Converter: ir.ConvertNumber, Default: ir.Number(5)}
	leaf := &ir.RouteNode{Config: &ir.StateConfig{Fields: []ir.FieldSpec{num("pageSize", 30), bad}}}

	res := Resolve([]*ir.RouteNode{leaf})
	assert.Equal(t, []string{"pageSize"}, names(res.Effective))
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, codec.CodeMultiDefault, res.Dropped[0].Code)
}

func TestResolveDoesNotMutateTree(t *testing.T) {
	rootCfg := &ir.StateConfig{Fields: []ir.FieldSpec{num("a", 1)}}
	leafCfg := &ir.StateConfig{Fields: []ir.FieldSpec{num("b", 2)}}
	chain := []*ir.RouteNode{{Config: rootCfg}, {Path: "x", Config: leafCfg}}

	Resolve(chain)
	Resolve(chain)

	assert.Len(t, leafCfg.Fields, 1)
	assert.Nil(t, leafCfg.RemoveUnknownKeys)
}

func TestWarningString(t *testing.T) {
	w := Warning{Node: "users", Keys: []string{"pageSize", "removeUnknown"}}
	assert.Equal(t, `route "users": overridden keys pageSize, removeUnknown`, w.String())
}

func TestResolveDropsDuplicateFields(t *testing.T) {
	leaf := &ir.RouteNode{Path: "", Config: &ir.StateConfig{Fields: []ir.FieldSpec{num("page", 1), str("page", "x")}}}

	res := Resolve([]*ir.RouteNode{leaf})
	require.Len(t, res.Effective.Fields, 1)
	assert.Equal(t, ir.Number(1), res.Effective.Fields[0].Default, "first declaration wins")
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, codec.CodeDuplicateField, res.Dropped[0].Code)
}
