package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/querystate/internal/ir"
)

// Predicate is a condition on journaled cycles.
//
// This is a sealed interface: only types in this package implement it, so
// compilePredicate can switch exhaustively and column names are checked
// against a fixed set before they reach SQL.
//
// Predicate types:
//   - Equals: column = value
//   - After: seq > n
//   - And: every predicate holds
type Predicate interface {
	predicate()
}

// Equals matches cycles whose column equals Value.
type Equals struct {
	Column string
	Value  string
}

// After matches cycles journaled after Seq.
type After struct {
	Seq int64
}

// And matches cycles satisfying every predicate. An empty And matches
// everything.
type And []Predicate

func (Equals) predicate() {}
func (After) predicate()  {}
func (And) predicate()    {}

// filterColumns are the text columns a predicate may name.
var filterColumns = map[string]bool{
	"token":       true,
	"url":         true,
	"route":       true,
	"schema_hash": true,
	"outcome":     true,
	"target":      true,
	"reason":      true,
}

// Select returns the cycles matching p ordered by seq ASC. A nil p matches
// every cycle.
func (s *Store) Select(ctx context.Context, p Predicate) ([]ir.CycleRecord, error) {
	query, args, err := compileSelect(p)
	if err != nil {
		return nil, err
	}
	return s.readCycles(ctx, query, args...)
}

// compileSelect renders p as a parameterized query. Values are never
// interpolated and every query is ordered by seq.
func compileSelect(p Predicate) (string, []any, error) {
	query := `SELECT ` + cycleColumns + ` FROM cycles`
	var args []any
	if p != nil {
		where, params, err := compilePredicate(p)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		query += " WHERE " + where
		args = params
	}
	return query + " ORDER BY seq ASC", args, nil
}

func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case Equals:
		if !filterColumns[pred.Column] {
			return "", nil, fmt.Errorf("unknown column %q", pred.Column)
		}
		return pred.Column + " = ?", []any{pred.Value}, nil
	case After:
		return "seq > ?", []any{pred.Seq}, nil
	case And:
		if len(pred) == 0 {
			return "1 = 1", nil, nil
		}
		parts := make([]string, 0, len(pred))
		var args []any
		for i, sub := range pred {
			sql, params, err := compilePredicate(sub)
			if err != nil {
				return "", nil, fmt.Errorf("and[%d]: %w", i, err)
			}
			parts = append(parts, "("+sql+")")
			args = append(args, params...)
		}
		return strings.Join(parts, " AND "), args, nil
	case nil:
		return "", nil, fmt.Errorf("nil predicate")
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}
