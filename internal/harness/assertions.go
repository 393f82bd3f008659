package harness

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/querystate/internal/engine"
	"github.com/roach88/querystate/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the trace to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s %s", ev.Seq, ev.Token, ev.Outcome, ev.URL)
		if ev.Target != "" {
			fmt.Fprintf(&buf, " -> %s", ev.Target)
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, a)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertFinalState:
			err = assertFinalState(result, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

// assertTraceContains checks for a cycle with the given outcome, and URL
// when one is specified.
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Outcome == a.Outcome && (a.URL == "" || ev.URL == a.URL) {
			return nil
		}
	}

	expected := a.Outcome
	if a.URL != "" {
		expected += " at " + a.URL
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that the outcomes occur as a subsequence of the
// trace. Intervening cycles are allowed.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	next := 0
	for _, ev := range trace {
		if next < len(a.Outcomes) && ev.Outcome == a.Outcomes[next] {
			next++
		}
	}
	if next == len(a.Outcomes) {
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceOrder,
		Expected: fmt.Sprintf("outcomes in order: %v", a.Outcomes),
		Actual:   fmt.Sprintf("matched %v, missing %s", a.Outcomes[:next], a.Outcomes[next]),
		Trace:    trace,
	}
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Outcome == a.Outcome {
			count++
		}
	}
	if count == a.Count {
		return nil
	}

	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d %s cycles", a.Count, a.Outcome),
		Actual:   fmt.Sprintf("%d", count),
		Trace:    trace,
	}
}

func assertFinalState(result *Result, a Assertion) error {
	mismatches, err := compareState(result.State, a.Expect)
	if err != nil {
		return err
	}
	if len(mismatches) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: fmt.Sprintf("%v", a.Expect),
		Actual:   strings.Join(mismatches, "; "),
		Trace:    result.Trace,
	}
}

// compareState subset-matches expect against state.
func compareState(state ir.State, expect map[string]any) ([]string, error) {
	var mismatches []string
	keys := make([]string, 0, len(expect))
	for k := range expect {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		want, err := ir.FromAny(expect[k])
		if err != nil {
			return nil, fmt.Errorf("expected value for %q: %w", k, err)
		}
		got, ok := state[k]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s: missing, want %s", k, ir.Describe(want)))
			continue
		}
		if !ir.Equal(want, got) {
			mismatches = append(mismatches, fmt.Sprintf("%s: got %s, want %s", k, ir.Describe(got), ir.Describe(want)))
		}
	}
	return mismatches, nil
}

// checkExpect compares a step's run with its expect clause.
func (h *Harness) checkExpect(exp *ExpectClause, run stepRun) []string {
	var failures []string
	fail := func(format string, args ...any) {
		failures = append(failures, fmt.Sprintf(format, args...))
	}

	var last ir.CycleRecord
	if n := len(run.cycles); n > 0 {
		last = run.cycles[n-1]
	}

	if exp.Outcome != "" && last.Outcome != exp.Outcome {
		fail("outcome: got %q, want %q", last.Outcome, exp.Outcome)
	}
	if exp.URL != "" {
		if got := h.engine.InFlight(); got != exp.URL {
			fail("url: got %q, want %q", got, exp.URL)
		}
	}
	if len(exp.State) > 0 {
		state, _ := h.engine.Current()
		mismatches, err := compareState(state, exp.State)
		if err != nil {
			fail("%v", err)
		}
		for _, m := range mismatches {
			fail("state %s", m)
		}
	}
	if exp.Corrections != nil {
		var keys []string
		if len(run.cycles) > 0 {
			for _, c := range run.cycles[0].Corrections {
				keys = append(keys, c.Key)
			}
		}
		if !slices.Equal(keys, exp.Corrections) {
			fail("corrections: got %v, want %v", keys, exp.Corrections)
		}
	}

	var rerr *engine.RuntimeError
	switch {
	case exp.Error != "" && !errors.As(run.err, &rerr):
		fail("error: got none, want %s", exp.Error)
	case exp.Error != "" && string(rerr.Code) != exp.Error:
		fail("error: got %s, want %s", rerr.Code, exp.Error)
	case exp.Error == "" && run.err != nil:
		fail("unexpected error: %v", run.err)
	}

	if exp.Allowed != nil || exp.Action != "" || exp.Target != "" {
		if run.decision == nil {
			fail("guard: no decision recorded")
			return failures
		}
		d := run.decision
		if exp.Allowed != nil && d.Allowed != *exp.Allowed {
			fail("guard allowed: got %v, want %v", d.Allowed, *exp.Allowed)
		}
		if exp.Action != "" && d.Action.String() != exp.Action {
			fail("guard action: got %s, want %s", d.Action, exp.Action)
		}
		if exp.Target != "" && d.Target != exp.Target {
			fail("guard target: got %q, want %q", d.Target, exp.Target)
		}
	}
	return failures
}
