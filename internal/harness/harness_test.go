package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/querystate/internal/ir"
)

const demoRoutes = "../../testdata/routes/demo.yaml"

func TestRun_RedirectsToCanonicalURL(t *testing.T) {
	scenario := &Scenario{
		Name:   "cleanup",
		Routes: demoRoutes,
		Flow: []FlowStep{{
			Navigate: "/users?pageSize=abc&debug=1",
			Expect: &ExpectClause{
				Outcome:     ir.CycleReconciled,
				URL:         "/users",
				Corrections: []string{"pageSize", "debug"},
				State:       map[string]any{"pageSize": 10, "role": nil},
			},
		}},
		Assertions: []Assertion{
			{Type: AssertTraceOrder, Outcomes: []string{ir.CycleRedirect, ir.CycleReconciled}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 2)
	assert.Equal(t, "nav-1", result.Trace[0].Token)
	assert.Equal(t, result.Trace[0].Token, result.Trace[1].Token, "redirect follow-up keeps the token")
	assert.Equal(t, "/users", result.Trace[0].Target)
	assert.Equal(t, []string{"pageSize: Invalid number", "debug: Unknown param"}, result.Trace[0].Corrections)
	assert.Equal(t, ir.State{
		"pageSize":    ir.Number(10),
		"role":        ir.Null{},
		"filter":      ir.String(""),
		"completed":   ir.Bool(false),
		"page":        ir.Numbers(1, 2, 3),
		"openToggles": ir.Bools(false, false, false, false, false, false),
	}, result.State, "users inherits the root fields")
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	scenario := &Scenario{
		Name:   "wrong",
		Routes: demoRoutes,
		Flow: []FlowStep{{
			Navigate: "/users?pageSize=20",
			Expect: &ExpectClause{
				Outcome:     ir.CycleRedirect,
				Corrections: []string{"pageSize"},
				State:       map[string]any{"pageSize": 10},
				Error:       "REDIRECT_CYCLE",
			},
		}},
		Assertions: []Assertion{
			{Type: AssertTraceCount, Outcome: ir.CycleRedirect, Count: 1},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)

	require.Len(t, result.Errors, 5)
	assert.Contains(t, result.Errors[0], `flow[0]: outcome: got "reconciled", want "redirect"`)
	assert.Contains(t, result.Errors[1], "flow[0]: state pageSize: got 20, want 10")
	assert.Contains(t, result.Errors[2], "flow[0]: corrections")
	assert.Contains(t, result.Errors[3], "flow[0]: error: got none, want REDIRECT_CYCLE")
	assert.Contains(t, result.Errors[4], "assertions[0]")
}

func TestRun_CancelRestoresCurrent(t *testing.T) {
	scenario := &Scenario{
		Name:   "cancel",
		Routes: demoRoutes,
		Flow: []FlowStep{
			{Navigate: "/users"},
			{Cancel: true, Expect: &ExpectClause{Outcome: ir.CycleCancelled, URL: "/users"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, ir.CycleReconciled, result.Trace[0].Outcome)
	assert.Equal(t, ir.CycleCancelled, result.Trace[1].Outcome)
	assert.Empty(t, result.Trace[1].Token, "nothing was pending")
	assert.Equal(t, "/users", result.Trace[1].Target)
}

func TestRun_GuardNavigatesToRoot(t *testing.T) {
	scenario, err := LoadScenario("../../testdata/scenarios/guard_fallback.yaml")
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 3)
	guarded := result.Trace[1]
	assert.Equal(t, ir.CycleRedirect, guarded.Outcome)
	assert.Equal(t, ir.ReasonGuard, guarded.Reason)
	assert.Equal(t, "/users?role=ADMIN", guarded.URL)
	assert.Equal(t, "/", guarded.Target)
}

func TestRun_GuardExpectationWithoutDecision(t *testing.T) {
	allowed := true
	scenario := &Scenario{
		Name:   "no_decision",
		Routes: demoRoutes,
		Flow: []FlowStep{{
			Navigate: "/users",
			Expect:   &ExpectClause{Allowed: &allowed},
		}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, []string{"flow[0]: guard: no decision recorded"}, result.Errors)
}

func TestRun_CUERoutes(t *testing.T) {
	scenario := &Scenario{
		Name:   "cue",
		Routes: "../../testdata/routes/demo.cue",
		Flow: []FlowStep{{
			Navigate: "/users?role=ADMIN",
			Expect:   &ExpectClause{Outcome: ir.CycleRedirect},
		}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.NotEmpty(t, result.Trace)
	assert.Equal(t, ir.CycleRedirect, result.Trace[0].Outcome, "compressed mode rewrites plain queries")
}

func TestRun_RouteLoadErrors(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "routes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("routes: []"), 0644))

	tests := []struct {
		name    string
		routes  string
		wantErr string
	}{
		{"missing file", filepath.Join(dir, "missing.yaml"), "failed to load routes"},
		{"unsupported extension", txt, "unsupported route file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(&Scenario{Name: "x", Routes: tt.routes, Flow: []FlowStep{{Navigate: "/"}}})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario, err := LoadScenario("../../testdata/scenarios/users_cleanup.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := MarshalTrace(scenario.Name, first.Trace)
	require.NoError(t, err)
	b, err := MarshalTrace(scenario.Name, second.Trace)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
