package testutil

import "github.com/roach88/querystate/internal/ir"

// Field builds a FieldSpec without the optional settings.
func Field(name string, kind ir.Kind, conv ir.Converter, def ir.Value) ir.FieldSpec {
	return ir.FieldSpec{Name: name, Kind: kind, Converter: conv, Default: def}
}

// DemoConfig is the list page configuration used across tests: paging,
// a free-text filter and a six-slot toggle vector.
func DemoConfig() *ir.StateConfig {
	return &ir.StateConfig{Fields: []ir.FieldSpec{
		Field("pageSize", ir.KindScalar, ir.ConvertNumber, ir.Number(30)),
		Field("filter", ir.KindScalar, ir.ConvertString, ir.String("")),
		Field("completed", ir.KindScalar, ir.ConvertBoolean, ir.Bool(false)),
		{
			Name: "page", Kind: ir.KindMulti, Converter: ir.ConvertNumber,
			Default: ir.String("1;2;3"), Count: 3,
		},
		{
			Name: "openToggles", Kind: ir.KindBinaryBooleanVector, Converter: ir.ConvertBoolean,
			Default: ir.Number(0), VectorLength: 6, RemoveInvalidOverflow: true,
		},
	}}
}

// DemoRoutes is a two-level tree: the root carries DemoConfig, and
// "users" narrows pageSize and drops unknown keys.
//
//	""        DemoConfig
//	└─ users  pageSize=10, role in [null, ADMIN], removeUnknown
func DemoRoutes() []*ir.RouteNode {
	role := Field("role", ir.KindScalar, ir.ConvertString, ir.Null{})
	role.AllowedValues = []ir.Value{ir.Null{}, ir.String("ADMIN")}

	users := &ir.RouteNode{
		Path: "users",
		Config: &ir.StateConfig{
			Fields: []ir.FieldSpec{
				Field("pageSize", ir.KindScalar, ir.ConvertNumber, ir.Number(10)),
				role,
			},
			RemoveUnknownKeys: ir.Flag(true),
		},
	}
	return []*ir.RouteNode{{Path: "", Config: DemoConfig(), Children: []*ir.RouteNode{users}}}
}

// DemoChain returns the DemoRoutes chain for route ("" or "users").
func DemoChain(route string) []*ir.RouteNode {
	return ir.Chain(DemoRoutes(), route)
}
