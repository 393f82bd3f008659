// Package schema resolves the effective field schema for a route node chain.
//
// Inheritance is a fold from the leaf towards the root with descendant
// priority: a field or option set by a closer node is never replaced by an
// ancestor. Collisions are reported as warnings and do not change the result.
package schema

import (
	"fmt"
	"strings"

	"github.com/roach88/querystate/internal/codec"
	"github.com/roach88/querystate/internal/ir"
)

// Warning is a non-fatal diagnostic produced while resolving.
type Warning struct {
	// Node is the path of the ancestor whose keys were shadowed.
	Node string

	// Keys are the shadowed field and option names.
	Keys []string
}

func (w Warning) String() string {
	return fmt.Sprintf("route %q: overridden keys %s", w.Node, strings.Join(w.Keys, ", "))
}

// Result is the effective schema for one location.
type Result struct {
	Effective *ir.StateConfig
	Warnings  []Warning

	// Dropped holds the issues of malformed fields removed from Effective.
	Dropped []codec.Issue
}

// Resolve computes the effective schema for chain, ordered root to leaf.
// A nil leaf config resolves to an empty schema with default options.
func Resolve(chain []*ir.RouteNode) Result {
	if len(chain) == 0 {
		return Result{Effective: &ir.StateConfig{}}
	}

	leaf := chain[len(chain)-1].Config
	acc := clone(leaf)

	var warnings []Warning
	if leaf.Inherit() {
		for i := len(chain) - 2; i >= 0; i-- {
			node := chain[i]
			if node.Config == nil {
				continue
			}
			if shadowed := fold(acc, node.Config); len(shadowed) > 0 {
				warnings = append(warnings, Warning{Node: node.Path, Keys: shadowed})
			}
		}
	}

	kept := acc.Fields[:0]
	var dropped []codec.Issue
	seen := make(map[string]bool, len(acc.Fields))
	for _, f := range acc.Fields {
		if seen[f.Name] {
			dropped = append(dropped, codec.Issue{Field: f.Name, Code: codec.CodeDuplicateField, Message: "field declared twice on one route"})
			continue
		}
		if issues := codec.Validate(f); len(issues) > 0 {
			dropped = append(dropped, issues...)
			continue
		}
		seen[f.Name] = true
		kept = append(kept, f)
	}
	acc.Fields = kept

	return Result{Effective: acc, Warnings: warnings, Dropped: dropped}
}

// fold merges ancestor into acc without overwriting anything acc already
// has, returning the names that collided.
func fold(acc, ancestor *ir.StateConfig) []string {
	var shadowed []string
	for _, f := range ancestor.Fields {
		if _, exists := acc.Field(f.Name); exists {
			shadowed = append(shadowed, f.Name)
			continue
		}
		acc.Fields = append(acc.Fields, f)
	}

	options := []struct {
		name      string
		dst, from **bool
	}{
		{"removeUnknown", &acc.RemoveUnknownKeys, &ancestor.RemoveUnknownKeys},
		{"caseSensitive", &acc.CaseSensitiveMatching, &ancestor.CaseSensitiveMatching},
		{"noQueryParams", &acc.SuppressQueryParams, &ancestor.SuppressQueryParams},
	}
	for _, opt := range options {
		if *opt.from == nil {
			continue
		}
		if *opt.dst != nil {
			shadowed = append(shadowed, opt.name)
			continue
		}
		*opt.dst = *opt.from
	}
	return shadowed
}

func clone(cfg *ir.StateConfig) *ir.StateConfig {
	if cfg == nil {
		return &ir.StateConfig{}
	}
	out := *cfg
	out.Fields = append([]ir.FieldSpec(nil), cfg.Fields...)
	return &out
}
