package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, `
name: test_scenario
description: "Test scenario for validation"
routes: routes.yaml
token_prefix: t
flow:
  - navigate: /users?pageSize=abc
    expect:
      outcome: reconciled
      corrections: [pageSize]
  - guard: deactivate
    table:
      role: { match: [null, ADMIN], default: ADMIN }
assertions:
  - type: trace_contains
    outcome: redirect
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, filepath.Join(dir, "routes.yaml"), scenario.Routes)
	assert.Equal(t, "t", scenario.TokenPrefix)
	require.Len(t, scenario.Flow, 2)
	assert.Equal(t, "/users?pageSize=abc", scenario.Flow[0].Navigate)
	assert.Equal(t, []string{"pageSize"}, scenario.Flow[0].Expect.Corrections)
	assert.Equal(t, "deactivate", scenario.Flow[1].Guard)
	assert.Equal(t, "ADMIN", scenario.Flow[1].Table["role"].Default)
	assert.Len(t, scenario.Assertions, 1)
}

func TestLoadScenario_AbsoluteRoutes(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(t.TempDir(), "routes.cue")
	path := writeScenario(t, dir, "name: s\nroutes: "+abs+"\nflow:\n  - navigate: /\n")

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, abs, scenario.Routes)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_UnknownField(t *testing.T) {
	_, err := ParseScenario([]byte(`
name: typo
routes: r.yaml
flow:
  - navigat: /
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "routes: r.yaml\nflow:\n  - navigate: /\n",
			wantErr: "name is required",
		},
		{
			name:    "missing routes",
			content: "name: s\nflow:\n  - navigate: /\n",
			wantErr: "routes is required",
		},
		{
			name:    "empty flow",
			content: "name: s\nroutes: r.yaml\nflow: []\n",
			wantErr: "at least one step",
		},
		{
			name:    "negative quota",
			content: "name: s\nroutes: r.yaml\nmax_redirects: -1\nflow:\n  - navigate: /\n",
			wantErr: "max_redirects",
		},
		{
			name:    "two actions in one step",
			content: "name: s\nroutes: r.yaml\nflow:\n  - navigate: /\n    cancel: true\n",
			wantErr: "exactly one of navigate, cancel and guard",
		},
		{
			name:    "no action",
			content: "name: s\nroutes: r.yaml\nflow:\n  - route: /users\n",
			wantErr: "exactly one of navigate, cancel and guard",
		},
		{
			name:    "bad guard mode",
			content: "name: s\nroutes: r.yaml\nflow:\n  - guard: enter\n    table: { a: { match: 1 } }\n",
			wantErr: "guard must be activate or deactivate",
		},
		{
			name:    "guard without table",
			content: "name: s\nroutes: r.yaml\nflow:\n  - guard: activate\n",
			wantErr: "table is required",
		},
		{
			name:    "route on cancel",
			content: "name: s\nroutes: r.yaml\nflow:\n  - cancel: true\n    route: /users\n",
			wantErr: "route is only valid on navigate steps",
		},
		{
			name:    "assertion without type",
			content: "name: s\nroutes: r.yaml\nflow:\n  - navigate: /\nassertions:\n  - outcome: redirect\n",
			wantErr: "type is required",
		},
		{
			name:    "unknown assertion",
			content: "name: s\nroutes: r.yaml\nflow:\n  - navigate: /\nassertions:\n  - type: trace_matches\n",
			wantErr: "unknown assertion type",
		},
		{
			name:    "trace_order without outcomes",
			content: "name: s\nroutes: r.yaml\nflow:\n  - navigate: /\nassertions:\n  - type: trace_order\n",
			wantErr: "outcomes list is required",
		},
		{
			name:    "final_state without expect",
			content: "name: s\nroutes: r.yaml\nflow:\n  - navigate: /\nassertions:\n  - type: final_state\n",
			wantErr: "expect is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_RepositoryScenarios(t *testing.T) {
	paths, err := filepath.Glob("../../testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			_, err = os.Stat(scenario.Routes)
			assert.NoError(t, err, "routes file should exist")
		})
	}
}
