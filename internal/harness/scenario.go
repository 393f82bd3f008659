package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of navigations against one route file,
// with expectations per step and assertions over the resulting journal.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Routes is the route configuration file (.yaml, .yml or .cue),
	// relative to the scenario file.
	Routes string `yaml:"routes"`

	// TokenPrefix prefixes the deterministic navigation tokens.
	// Default "nav" yields nav-1, nav-2, ...
	TokenPrefix string `yaml:"token_prefix,omitempty"`

	// MaxRedirects overrides the engine's redirect quota.
	MaxRedirects int `yaml:"max_redirects,omitempty"`

	Flow       []FlowStep  `yaml:"flow"`
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// FlowStep is one navigation, cancellation or guard check. Exactly one of
// Navigate, Cancel and Guard is set.
type FlowStep struct {
	// Navigate is the URL to navigate to. Redirects it triggers are
	// followed before the step's expectations are checked.
	Navigate string `yaml:"navigate,omitempty"`

	// Route addresses the route node chain. Defaults to the URL path.
	Route string `yaml:"route,omitempty"`

	// Cancel cancels the navigation in flight.
	Cancel bool `yaml:"cancel,omitempty"`

	// Guard is "activate" or "deactivate", evaluated with Table.
	Guard string               `yaml:"guard,omitempty"`
	Table map[string]GuardRule `yaml:"table,omitempty"`

	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// GuardRule is the YAML form of guard.Rule.
type GuardRule struct {
	Match   any `yaml:"match"`
	Default any `yaml:"default,omitempty"`
}

// ExpectClause specifies what a step must produce. Unset fields are not
// checked.
type ExpectClause struct {
	// Outcome is the outcome of the step's last cycle.
	Outcome string `yaml:"outcome,omitempty"`

	// URL is the in-flight location after the step.
	URL string `yaml:"url,omitempty"`

	// State is a subset match against the current state.
	State map[string]any `yaml:"state,omitempty"`

	// Corrections are the keys corrected by the step's first cycle, in
	// order.
	Corrections []string `yaml:"corrections,omitempty"`

	// Error is the runtime error code, e.g. REDIRECT_CYCLE.
	Error string `yaml:"error,omitempty"`

	// Allowed, Action and Target check a guard decision.
	Allowed *bool  `yaml:"allowed,omitempty"`
	Action  string `yaml:"action,omitempty"`
	Target  string `yaml:"target,omitempty"`
}

// Assertion validates the final trace and state.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count and
	// final_state.
	Type string `yaml:"type"`

	// Outcome is the cycle outcome (trace_contains, trace_count).
	Outcome string `yaml:"outcome,omitempty"`

	// URL narrows trace_contains to one location.
	URL string `yaml:"url,omitempty"`

	// Outcomes is the expected outcome subsequence (trace_order).
	Outcomes []string `yaml:"outcomes,omitempty"`

	// Count is the expected number of cycles (trace_count).
	Count int `yaml:"count,omitempty"`

	// Expect is a subset match against the final state (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
)

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos surface as errors. The route file path is resolved
// relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(scenario.Routes) {
		scenario.Routes = filepath.Join(filepath.Dir(path), scenario.Routes)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML. Relative route paths are left as is.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Routes == "" {
		return fmt.Errorf("routes is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow must have at least one step")
	}
	if s.MaxRedirects < 0 {
		return fmt.Errorf("max_redirects must be non-negative")
	}

	for i, step := range s.Flow {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(i, a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step FlowStep) error {
	set := 0
	for _, b := range []bool{step.Navigate != "", step.Cancel, step.Guard != ""} {
		if b {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("flow[%d]: exactly one of navigate, cancel and guard is required", index)
	}

	if step.Guard != "" {
		if step.Guard != "activate" && step.Guard != "deactivate" {
			return fmt.Errorf("flow[%d]: guard must be activate or deactivate, got %q", index, step.Guard)
		}
		if len(step.Table) == 0 {
			return fmt.Errorf("flow[%d]: table is required for guard steps", index)
		}
	}
	if step.Route != "" && step.Navigate == "" {
		return fmt.Errorf("flow[%d]: route is only valid on navigate steps", index)
	}
	return nil
}

func validateAssertion(index int, a Assertion) error {
	switch a.Type {
	case AssertTraceContains:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Outcomes) == 0 {
			return fmt.Errorf("assertions[%d]: outcomes list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: outcome is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
