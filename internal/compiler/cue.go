package compiler

import (
	"cuelang.org/go/cue"
)

// CompileRoutes compiles a CUE route configuration. v is the document
// value itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`routes: [{ path: "users", config: { ... } }]`)
//	doc, err := CompileRoutes(v)
//
// Every value must be concrete. Definitions and hidden fields are ignored,
// so a file may declare helper schemas next to its routes.
func CompileRoutes(v cue.Value) (*Document, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	tree, err := fromCUE("document", v)
	if err != nil {
		return nil, err
	}
	root, ok := tree.(mapping)
	if !ok {
		return nil, &CompileError{Field: "document", Message: "must be a struct", Pos: v.Pos()}
	}
	return compileDocument(root)
}

func fromCUE(field string, v cue.Value) (any, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	pos := position{pos: v.Pos()}

	switch v.IncompleteKind() {
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		m := mapping{pos: pos}
		for iter.Next() {
			label := iter.Label()
			child, err := fromCUE(field+"."+label, iter.Value())
			if err != nil {
				return nil, err
			}
			m.entries = append(m.entries, entry{key: label, val: child, pos: position{pos: iter.Value().Pos()}})
		}
		return m, nil

	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		var list []any
		for iter.Next() {
			item, err := fromCUE(field+"[]", iter.Value())
			if err != nil {
				return nil, err
			}
			list = append(list, item)
		}
		if list == nil {
			list = []any{}
		}
		return list, nil

	case cue.NullKind:
		return nil, nil

	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, pos.errorf(field, "must be concrete: %v", err)
		}
		return b, nil

	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, pos.errorf(field, "must be concrete: %v", err)
		}
		return s, nil

	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, pos.errorf(field, "must be a concrete number: %v", err)
		}
		return f, nil

	default:
		return nil, pos.errorf(field, "unsupported value kind: %v", v.IncompleteKind())
	}
}
