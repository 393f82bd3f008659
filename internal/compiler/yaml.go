package compiler

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// CompileYAML compiles a YAML route configuration with the same shape as
// the CUE form. The node API is used so stateConfig keeps its declaration
// order.
func CompileYAML(data []byte) (*Document, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &CompileError{Field: "yaml", Message: err.Error()}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &CompileError{Field: "document", Message: "empty document"}
	}

	tree, err := fromYAML("document", doc.Content[0])
	if err != nil {
		return nil, err
	}
	root, ok := tree.(mapping)
	if !ok {
		return nil, yamlPos(doc.Content[0]).errorf("document", "must be a mapping")
	}
	return compileDocument(root)
}

func yamlPos(n *yaml.Node) position {
	return position{line: n.Line, col: n.Column}
}

func fromYAML(field string, n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.AliasNode:
		return fromYAML(field, n.Alias)

	case yaml.MappingNode:
		m := mapping{pos: yamlPos(n)}
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, yamlPos(k).errorf(field, "mapping keys must be scalars")
			}
			child, err := fromYAML(field+"."+k.Value, v)
			if err != nil {
				return nil, err
			}
			m.entries = append(m.entries, entry{key: k.Value, val: child, pos: yamlPos(k)})
		}
		return m, nil

	case yaml.SequenceNode:
		list := make([]any, 0, len(n.Content))
		for i, item := range n.Content {
			child, err := fromYAML(fmt.Sprintf("%s[%d]", field, i), item)
			if err != nil {
				return nil, err
			}
			list = append(list, child)
		}
		return list, nil

	case yaml.ScalarNode:
		return yamlScalar(field, n)

	default:
		return nil, yamlPos(n).errorf(field, "unsupported YAML node")
	}
}

func yamlScalar(field string, n *yaml.Node) (any, error) {
	switch n.ShortTag() {
	case "!!null":
		return nil, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, yamlPos(n).errorf(field, "%v", err)
		}
		return b, nil
	case "!!int", "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, yamlPos(n).errorf(field, "%v", err)
		}
		return f, nil
	case "!!str":
		return n.Value, nil
	default:
		return nil, yamlPos(n).errorf(field, "unsupported scalar tag %s (%s)", n.ShortTag(), strconv.Quote(n.Value))
	}
}
