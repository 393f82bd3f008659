package engine

import (
	"context"
	"time"

	"github.com/roach88/querystate/internal/guard"
	"github.com/roach88/querystate/internal/ir"
	"github.com/roach88/querystate/internal/reconcile"
)

// rootLocation is the activation fallback when nothing precedes the
// navigation in flight.
const rootLocation = "/"

// Matches evaluates table against the current state with no side effects.
func (e *Engine) Matches(table guard.Table) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	var state ir.State
	if e.current != nil {
		state = e.current.State
	}
	return guard.Matches(table, state)
}

// CanActivate gates the navigation in flight. Call it once the
// navigation's state has been published.
//
// On a mismatch the engine either re-publishes the preceding state (the
// fallback is where the user already was) or asks the navigator for the
// fallback location. A fallback equal to the in-flight location fails with
// a GUARD_LOOP error.
func (e *Engine) CanActivate(ctx context.Context, table guard.Table) (bool, error) {
	e.mu.Lock()
	prev := e.precedingLocked()
	fallback := prev.URL()
	if fallback == "" {
		fallback = rootLocation
	}
	gctx := guard.Context{
		Mode:      guard.Activate,
		State:     e.stateLocked(),
		Fallback:  fallback,
		Preceding: prev.URL(),
		InFlight:  e.inFlight,
	}
	return e.decideLocked(ctx, table, gctx, prev)
}

// CanDeactivate gates leaving a location. leaving is the snapshot being
// left; nil means the current one. On a mismatch the navigator is sent
// back to the location being left. Deactivation never replays silently.
func (e *Engine) CanDeactivate(ctx context.Context, table guard.Table, leaving *reconcile.Snapshot) (bool, error) {
	e.mu.Lock()
	if leaving == nil {
		leaving = e.current
	}
	var state ir.State
	if leaving != nil {
		state = leaving.State
	}
	gctx := guard.Context{
		Mode:      guard.Deactivate,
		State:     state,
		Fallback:  leaving.URL(),
		Preceding: e.precedingLocked().URL(),
		InFlight:  e.inFlight,
	}
	return e.decideLocked(ctx, table, gctx, nil)
}

// decideLocked evaluates and applies a guard decision. It is entered with
// e.mu held and releases it.
func (e *Engine) decideLocked(ctx context.Context, table guard.Table, gctx guard.Context, prev *reconcile.Snapshot) (bool, error) {
	start := time.Now()
	d, err := guard.Evaluate(table, gctx)
	if err != nil {
		e.mu.Unlock()
		e.logger.Error("guard would loop", "mode", gctx.Mode.String(), "url", gctx.InFlight)
		return false, NewGuardLoopError(gctx.InFlight, err)
	}
	if d.Allowed {
		e.mu.Unlock()
		e.observer.ObserveGuard(gctx.Mode, d)
		return true, nil
	}

	rec := ir.CycleRecord{Seq: e.clock.Next(), URL: gctx.InFlight, Target: d.Target, Reason: ir.ReasonGuard}
	var replay ir.State
	var req *ir.NavigationRequest

	switch d.Action {
	case guard.ActionReplay:
		if prev != nil && prev != e.current {
			e.preceding = nil
			e.current = prev
		}
		e.inFlight = e.current.URL()
		if e.current != nil {
			replay = e.current.State
		}
		rec.Outcome = ir.CycleReplayed
		rec.Target = e.inFlight
		rec.State = replay

	case guard.ActionNavigate:
		if e.pending != nil {
			e.cycles.Clear(e.pending.token)
			e.pending = nil
		}
		token := e.tokens.Generate()
		req = &ir.NavigationRequest{Token: token, Target: d.Target, Reason: ir.ReasonGuard}
		rec.Token = token
		rec.Outcome = ir.CycleRedirect
	}
	e.mu.Unlock()

	e.logger.Info("guard rejected navigation",
		"mode", gctx.Mode.String(),
		"url", gctx.InFlight,
		"action", d.Action.String(),
		"target", rec.Target,
	)
	e.observer.ObserveGuard(gctx.Mode, d)
	e.emit(ctx, start, rec)

	if replay != nil {
		e.subs.publish(replay)
	}
	if req != nil {
		if err := e.navigate(ctx, *req); err != nil {
			return false, err
		}
	}
	return false, nil
}

// precedingLocked returns the location that precedes the navigation in
// flight: the current snapshot while the in-flight navigation is still
// unresolved, otherwise the one before it.
func (e *Engine) precedingLocked() *reconcile.Snapshot {
	if e.current != nil && e.current.URL() == e.inFlight {
		return e.preceding
	}
	return e.current
}

func (e *Engine) stateLocked() ir.State {
	if e.current == nil {
		return nil
	}
	return e.current.State
}
