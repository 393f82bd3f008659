package ir

import "strings"

// Correction records why a query key's URL form changed during a cycle.
type Correction struct {
	Key       string `json:"key"`
	Raw       string `json:"raw"`
	Canonical string `json:"canonical,omitempty"`
	Reason    string `json:"reason"`

	// Dropped is true when the key is absent from the redirect target.
	Dropped bool `json:"dropped,omitempty"`
}

// Cycle outcomes as recorded in the navigation journal.
const (
	CycleReconciled = "reconciled"
	CycleRedirect   = "redirect"
	CycleSuperseded = "superseded"
	CycleCancelled  = "cancelled"
	CycleReplayed   = "replayed"
	CycleFailed     = "failed"
)

// CycleRecord is one processed navigation event.
//
// Records are diagnostic history. They are never read back to restore
// state; the URL is the only source of truth.
type CycleRecord struct {
	Seq   int64  `json:"seq"`
	Token string `json:"token"`
	URL   string `json:"url"`
	Route string `json:"route"`

	SchemaHash string `json:"schema_hash,omitempty"`
	Outcome    string `json:"outcome"`

	// Target is the redirect or guard fallback location.
	Target string `json:"target,omitempty"`
	Reason string `json:"reason,omitempty"`

	State       State        `json:"state,omitempty"`
	Corrections []Correction `json:"corrections,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// RoutePath renders a root-to-leaf chain as "/a/b".
func RoutePath(chain []*RouteNode) string {
	parts := make([]string, 0, len(chain))
	for _, n := range chain {
		if n.Path != "" {
			parts = append(parts, n.Path)
		}
	}
	return "/" + strings.Join(parts, "/")
}
