package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/querystate/internal/ir"
)

// # Replay
//
// Reconciliation is a pure function of the URL, the route chain and the
// previous snapshot. Replaying a journal through a fresh engine therefore
// reproduces every outcome, redirect target and state exactly, as long as
// the route configuration is unchanged. Replay is how a journal from
// production is checked against a new configuration: every divergence is
// a URL whose behavior the new configuration changes.
//
// Only navigation cycles are replayed. Superseded, cancelled and guard
// records describe what the navigator and the application did, not what
// the reconciler decided.

// RouteResolver maps a journaled route path back to its node chain.
type RouteResolver func(route string) []*ir.RouteNode

// Divergence is one replayed cycle whose result differs from the journal.
type Divergence struct {
	Seq   int64  `json:"seq"`
	URL   string `json:"url"`
	Field string `json:"field"`
	Want  string `json:"want"`
	Got   string `json:"got"`
}

func (d Divergence) String() string {
	return fmt.Sprintf("seq %d %s: %s: want %q, got %q", d.Seq, d.URL, d.Field, d.Want, d.Got)
}

// Replay processes each replayable record through e in order and compares
// the results. e should be fresh and have no navigator.
func Replay(ctx context.Context, e *Engine, recs []ir.CycleRecord, resolve RouteResolver) ([]Divergence, error) {
	var out []Divergence
	for _, want := range recs {
		if !replayable(want) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}

		got, err := e.Process(ctx, Event{Type: EventNavigation, URL: want.URL, Chain: resolve(want.Route)})
		if err != nil && !isRuntimeError(err) {
			return out, fmt.Errorf("replay seq %d: %w", want.Seq, err)
		}
		out = append(out, compareCycles(want, got)...)
	}
	return out, nil
}

func replayable(rec ir.CycleRecord) bool {
	switch rec.Outcome {
	case ir.CycleReconciled, ir.CycleFailed:
		return true
	case ir.CycleRedirect:
		return rec.Reason != ir.ReasonGuard
	default:
		return false
	}
}

func isRuntimeError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re)
}

func compareCycles(want, got ir.CycleRecord) []Divergence {
	var out []Divergence
	diff := func(field, w, g string) {
		if w != g {
			out = append(out, Divergence{Seq: want.Seq, URL: want.URL, Field: field, Want: w, Got: g})
		}
	}

	diff("outcome", want.Outcome, got.Outcome)
	diff("target", want.Target, got.Target)
	diff("schema_hash", want.SchemaHash, got.SchemaHash)

	wantState, _ := ir.StateHash(want.State)
	gotState, _ := ir.StateHash(got.State)
	diff("state", wantState, gotState)
	return out
}
