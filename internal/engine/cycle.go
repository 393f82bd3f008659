package engine

import "sync"

// CycleDetector tracks the redirect targets issued within each navigation.
//
// A corrective redirect must converge: the follow-up navigation reconciles
// cleanly. If a chain asks for the same target twice, the reconciler and
// the navigator disagree about the URL (for example a navigator that
// re-encodes the query differently) and following the chain would loop
// forever.
//
//	/?page=x  -> redirect /?page=1
//	/?page=1  -> redirect /?page=1   <- CYCLE DETECTED
//
// History is in-memory and cleared when the navigation completes or is
// superseded.
type CycleDetector struct {
	mu      sync.Mutex
	history map[string]map[string]bool // map[token]map[target]bool
}

// NewCycleDetector creates a new cycle detector.
func NewCycleDetector() *CycleDetector {
	return &CycleDetector{
		history: make(map[string]map[string]bool),
	}
}

// WouldCycle reports whether target was already requested for token.
func (c *CycleDetector) WouldCycle(token, target string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.history[token][target]
}

// Record marks target as requested for token.
func (c *CycleDetector) Record(token, target string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.history[token] == nil {
		c.history[token] = make(map[string]bool)
	}
	c.history[token][target] = true
}

// Clear removes all history for a token.
func (c *CycleDetector) Clear(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.history, token)
}

// HistorySize returns the number of navigations with tracked history.
func (c *CycleDetector) HistorySize() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.history)
}

// ChainSize returns the number of targets tracked for a token.
func (c *CycleDetector) ChainSize(token string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.history[token])
}
