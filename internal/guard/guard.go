// Package guard evaluates match tables that gate activation into, and
// deactivation out of, a location.
package guard

import (
	"errors"
	"fmt"

	"github.com/roach88/querystate/internal/ir"
)

// ErrLoop is returned when a guard would fall back to the navigation that
// is currently in flight, which can only loop forever.
var ErrLoop = errors.New("navigating to the same location would loop forever")

// Rule constrains one state field.
type Rule struct {
	// Match is the required value. An Array lists accepted values.
	Match ir.Value `json:"match" yaml:"match"`

	// Default is the value a caller may substitute when the rule fails.
	Default ir.Value `json:"default,omitempty" yaml:"default,omitempty"`
}

// Table maps field names to rules.
type Table map[string]Rule

// Mode says which side of a transition is being gated.
type Mode int

const (
	Activate Mode = iota + 1
	Deactivate
)

func (m Mode) String() string {
	switch m {
	case Activate:
		return "activate"
	case Deactivate:
		return "deactivate"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Context is the snapshot a table is evaluated against.
type Context struct {
	Mode  Mode
	State ir.State

	// Fallback is where to go when the table does not match.
	Fallback string

	// Preceding is the immediately preceding resolved location.
	Preceding string

	// InFlight is the location currently being navigated to.
	InFlight string
}

// Action is what the caller must do after a failed evaluation.
type Action int

const (
	// ActionNone: the table matched, or nothing further is required.
	ActionNone Action = iota
	// ActionReplay: stay put and re-publish the preceding state.
	ActionReplay
	// ActionNavigate: navigate to Decision.Target.
	ActionNavigate
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionReplay:
		return "replay"
	case ActionNavigate:
		return "navigate"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Decision is the one-shot result of a guard evaluation.
type Decision struct {
	Allowed bool
	Action  Action
	Target  string

	// Suggested holds the Default of every rule that declares one, for
	// callers building their own fallback query.
	Suggested ir.State
}

// Matches reports whether state satisfies every rule of table. Rules for
// fields absent from state are skipped.
func Matches(table Table, state ir.State) bool {
	for name, rule := range table {
		v, ok := state[name]
		if !ok {
			continue
		}
		if !accepts(rule.Match, v) {
			return false
		}
	}
	return true
}

func accepts(match, v ir.Value) bool {
	if options, isList := match.(ir.Array); isList {
		return ir.Contains(options, v)
	}
	return ir.Equal(match, v)
}

// Evaluate gates a transition. It fails with ErrLoop, before matching,
// when the fallback is the in-flight location.
func Evaluate(table Table, ctx Context) (Decision, error) {
	if ctx.InFlight != "" && ctx.Fallback == ctx.InFlight {
		return Decision{}, fmt.Errorf("%s guard for %q: %w", ctx.Mode, ctx.InFlight, ErrLoop)
	}

	if Matches(table, ctx.State) {
		return Decision{Allowed: true, Action: ActionNone}, nil
	}

	d := Decision{Allowed: false, Suggested: suggested(table)}
	switch {
	case ctx.Fallback == ctx.Preceding && ctx.Mode != Deactivate:
		d.Action = ActionReplay
	default:
		d.Action = ActionNavigate
		d.Target = ctx.Fallback
	}
	return d, nil
}

func suggested(table Table) ir.State {
	var out ir.State
	for name, rule := range table {
		if rule.Default == nil {
			continue
		}
		if out == nil {
			out = ir.State{}
		}
		out[name] = rule.Default
	}
	return out
}
