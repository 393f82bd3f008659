package testutil

import (
	"context"
	"sync"

	"github.com/roach88/querystate/internal/ir"
)

// RecordingNavigator records navigation requests instead of performing
// them. Tests feed the recorded targets back to the engine themselves.
type RecordingNavigator struct {
	mu       sync.Mutex
	requests []ir.NavigationRequest

	// Err, if set, is returned from every Navigate call.
	Err error
}

// Navigate implements engine.Navigator.
func (n *RecordingNavigator) Navigate(_ context.Context, req ir.NavigationRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requests = append(n.requests, req)
	return n.Err
}

// Requests returns a copy of every recorded request.
func (n *RecordingNavigator) Requests() []ir.NavigationRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]ir.NavigationRequest, len(n.requests))
	copy(out, n.requests)
	return out
}

// Last returns the most recent request.
func (n *RecordingNavigator) Last() (ir.NavigationRequest, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.requests) == 0 {
		return ir.NavigationRequest{}, false
	}
	return n.requests[len(n.requests)-1], true
}

// Take returns and clears the recorded requests.
func (n *RecordingNavigator) Take() []ir.NavigationRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.requests
	n.requests = nil
	return out
}
