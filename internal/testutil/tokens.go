package testutil

import (
	"fmt"
	"sync"
)

// SequentialTokens mints predictable navigation tokens: "<prefix>-1",
// "<prefix>-2", ...
//
// Unlike engine.FixedGenerator it never runs out, and it can be reset so
// the same scenario produces byte-identical traces on every run.
//
// Thread-safety: all methods are safe for concurrent use.
type SequentialTokens struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialTokens creates a generator. An empty prefix means "nav".
func NewSequentialTokens(prefix string) *SequentialTokens {
	if prefix == "" {
		prefix = "nav"
	}
	return &SequentialTokens{prefix: prefix}
}

// Generate returns the next token.
func (g *SequentialTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Issued returns how many tokens have been generated.
func (g *SequentialTokens) Issued() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

// Reset restarts the sequence at 1.
func (g *SequentialTokens) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
