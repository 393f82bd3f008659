package engine

import (
	"context"
	"time"

	"github.com/roach88/querystate/internal/guard"
	"github.com/roach88/querystate/internal/ir"
)

// Navigator is the navigation subsystem's request primitive. The engine
// calls it for corrective redirects and guard fallbacks, always outside
// its own lock, so an implementation may enqueue the follow-up event
// synchronously.
type Navigator interface {
	Navigate(ctx context.Context, req ir.NavigationRequest) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, req ir.NavigationRequest) error

// Navigate calls f.
func (f NavigatorFunc) Navigate(ctx context.Context, req ir.NavigationRequest) error {
	return f(ctx, req)
}

// Observer receives a callback for every journaled cycle and every guard
// decision. Implementations must not block.
type Observer interface {
	ObserveCycle(rec ir.CycleRecord, elapsed time.Duration)
	ObserveGuard(mode guard.Mode, d guard.Decision)
}

// Journal persists cycle records for later inspection.
type Journal interface {
	WriteCycle(ctx context.Context, rec ir.CycleRecord) error
}

type nopObserver struct{}

func (nopObserver) ObserveCycle(ir.CycleRecord, time.Duration) {}
func (nopObserver) ObserveGuard(guard.Mode, guard.Decision)    {}
