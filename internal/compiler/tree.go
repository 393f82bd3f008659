package compiler

import (
	"fmt"

	"cuelang.org/go/cue/token"
)

// The CUE and YAML front-ends both lower their input to this tree, so
// route compilation is written once. Mapping entries keep declaration
// order: a route's field order is its canonical query order.

// position locates a tree node in its source.
type position struct {
	pos       token.Pos
	line, col int
}

func (p position) errorf(field, format string, args ...any) *CompileError {
	return &CompileError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Pos:     p.pos,
		Line:    p.line,
		Column:  p.col,
	}
}

// entry is one key of a mapping.
type entry struct {
	key string
	val any // nil, bool, float64, string, []any or mapping
	pos position
}

// mapping is an ordered set of entries.
type mapping struct {
	entries []entry
	pos     position
}

func (m mapping) get(key string) (entry, bool) {
	for _, e := range m.entries {
		if e.key == key {
			return e, true
		}
	}
	return entry{}, false
}

// check rejects keys outside allowed.
func (m mapping) check(field string, allowed ...string) error {
	for _, e := range m.entries {
		known := false
		for _, a := range allowed {
			if e.key == a {
				known = true
				break
			}
		}
		if !known {
			return e.pos.errorf(field, "unknown key %q", e.key)
		}
	}
	return nil
}

func (m mapping) boolFlag(field, key string) (*bool, error) {
	e, ok := m.get(key)
	if !ok {
		return nil, nil
	}
	b, isBool := e.val.(bool)
	if !isBool {
		return nil, e.pos.errorf(field+"."+key, "must be a boolean, got %s", describe(e.val))
	}
	return &b, nil
}

func (m mapping) str(field, key string) (string, bool, error) {
	e, ok := m.get(key)
	if !ok {
		return "", false, nil
	}
	s, isString := e.val.(string)
	if !isString {
		return "", false, e.pos.errorf(field+"."+key, "must be a string, got %s", describe(e.val))
	}
	return s, true, nil
}

func (m mapping) integer(field, key string) (int, bool, error) {
	e, ok := m.get(key)
	if !ok {
		return 0, false, nil
	}
	f, isNumber := e.val.(float64)
	if !isNumber || f != float64(int(f)) {
		return 0, false, e.pos.errorf(field+"."+key, "must be an integer, got %s", describe(e.val))
	}
	return int(f), true, nil
}

func describe(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "list"
	case mapping:
		return "mapping"
	default:
		return fmt.Sprintf("%T", val)
	}
}
