package harness

import (
	"fmt"

	"github.com/roach88/querystate/internal/ir"
)

// TraceEvent is one journaled cycle as it appears in traces and golden
// files. Schema hashes are left out so that golden files only change when
// behavior does.
type TraceEvent struct {
	Seq         int64    `json:"seq"`
	Token       string   `json:"token,omitempty"`
	Outcome     string   `json:"outcome"`
	URL         string   `json:"url"`
	Route       string   `json:"route,omitempty"`
	Target      string   `json:"target,omitempty"`
	Reason      string   `json:"reason,omitempty"`
	Corrections []string `json:"corrections,omitempty"`
	Error       string   `json:"error,omitempty"`
	State       ir.State `json:"state,omitempty"`
}

func traceEvent(rec ir.CycleRecord) TraceEvent {
	ev := TraceEvent{
		Seq:     rec.Seq,
		Token:   rec.Token,
		Outcome: rec.Outcome,
		URL:     rec.URL,
		Route:   rec.Route,
		Target:  rec.Target,
		Reason:  rec.Reason,
		Error:   rec.Error,
		State:   rec.State,
	}
	for _, c := range rec.Corrections {
		ev.Corrections = append(ev.Corrections, fmt.Sprintf("%s: %s", c.Key, c.Reason))
	}
	return ev
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace is the navigation journal in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains expectation and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// State is the last published state, or nil.
	State ir.State `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
