// Package harness runs navigation scenarios against the engine.
//
// A scenario names a route file and scripts a flow of navigations,
// cancellations and guard checks. Every step runs through a real engine
// journaling into an in-memory SQLite store; redirects the engine requests
// are delivered back as follow-up navigations before the step's
// expectations are checked.
//
// # Scenario Format
//
//	name: users_cleanup
//	description: "Invalid and unknown params are removed"
//	routes: ../routes/demo.yaml
//	flow:
//	  - navigate: /users?pageSize=abc&debug=1
//	    expect:
//	      outcome: reconciled
//	      url: /users
//	      corrections: [pageSize, debug]
//	      state: { pageSize: 10 }
//	  - guard: activate
//	    table: { role: { match: ADMIN } }
//	    expect: { allowed: false, action: navigate, target: / }
//	assertions:
//	  - type: trace_order
//	    outcomes: [redirect, reconciled]
//	  - type: final_state
//	    expect: { pageSize: 30 }
//
// # Assertion Types
//
//   - trace_contains: a cycle with the outcome (and URL) exists
//   - trace_order: outcomes appear as a subsequence of the trace
//   - trace_count: exactly N cycles have the outcome
//   - final_state: the last published state contains the expected values
//
// # Deterministic Testing
//
// Tokens come from testutil.SequentialTokens and sequence numbers from a
// fresh logical clock, so a scenario's trace is byte-identical across runs
// and can be compared with a golden file (RunWithGolden).
package harness
