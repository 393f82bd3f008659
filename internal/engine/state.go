package engine

import (
	"context"

	"github.com/roach88/querystate/internal/ir"
	"github.com/roach88/querystate/internal/reconcile"
)

// Subscribe returns a channel of published canonical states. The latest
// state, if any, is delivered immediately. A slow reader skips to the
// newest state rather than blocking the engine.
//
// The channel is closed when ctx is done or the engine is stopped.
func (e *Engine) Subscribe(ctx context.Context) <-chan ir.State {
	id, ch := e.subs.subscribe()
	if id < 0 {
		return ch
	}
	go func() {
		select {
		case <-ctx.Done():
			e.subs.unsubscribe(id)
		case <-e.subs.done:
		}
	}()
	return ch
}

// Current returns the last published state.
func (e *Engine) Current() (ir.State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil, false
	}
	return e.current.State.Clone(), true
}

// Snapshot returns the last completed snapshot, or nil.
func (e *Engine) Snapshot() *reconcile.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil
	}
	snap := *e.current
	snap.State = snap.State.Clone()
	return &snap
}

// InFlight returns the location currently being navigated to.
func (e *Engine) InFlight() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inFlight
}

// Select returns one key of the current state.
func (e *Engine) Select(key string) (ir.Value, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return nil, false
	}
	v, ok := e.current.State[key]
	return v, ok
}

// SelectWith narrows the current state with fn. fn receives nil before the
// first state is published.
func SelectWith[T any](e *Engine, fn func(ir.State) T) T {
	state, _ := e.Current()
	return fn(state)
}
