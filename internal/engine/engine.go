package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/querystate/internal/ir"
	"github.com/roach88/querystate/internal/reconcile"
	"github.com/roach88/querystate/internal/schema"
)

// DefaultMaxRedirects bounds the corrective redirects issued for one
// navigation. A well-behaved navigator needs exactly one.
const DefaultMaxRedirects = 8

// Engine drives the navigation cycle: it reconciles each navigation event
// against its route chain, issues corrective redirects, and publishes
// canonical states.
//
// Thread-safety model:
//   - Enqueue, Subscribe, Current, Select, Matches and the guard methods
//     are safe from any goroutine
//   - Run (or direct Process calls) must come from exactly ONE goroutine
//
// INVARIANTS:
//   - a state is published only for a Reconciled outcome, so every
//     published state is reproducible from the URL that produced it
//   - the preceding location advances once per completed navigation,
//     after reconciliation
//   - a pending redirect is either answered by its follow-up event or
//     discarded by the next unrelated navigation (last navigation wins)
type Engine struct {
	opts      ir.Options
	navigator Navigator
	queue     *eventQueue
	clock     *Clock
	tokens    TokenGenerator
	logger    *slog.Logger
	observer  Observer
	journal   Journal
	subs      *broadcaster

	maxRedirects int
	cycles       *CycleDetector

	mu        sync.Mutex
	inFlight  string
	pending   *pendingRedirect
	current   *reconcile.Snapshot
	preceding *reconcile.Snapshot
}

// pendingRedirect is a redirect awaiting its follow-up navigation.
type pendingRedirect struct {
	token  string
	target string
	hops   *QuotaEnforcer
}

// answeredBy reports whether ev is the navigation this redirect asked for.
// Navigators that echo the request token are matched by token; others are
// matched by location.
func (p *pendingRedirect) answeredBy(ev Event) bool {
	if ev.Cause != "" {
		return ev.Cause == p.token
	}
	return ir.ParseLocation(ev.URL).String() == p.target
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithOptions sets the debug and compression options.
func WithOptions(opts ir.Options) EngineOption {
	return func(e *Engine) {
		e.opts = opts
	}
}

// WithNavigator sets the navigator that receives redirect requests.
// Without one, requests are only journaled and returned from Process.
func WithNavigator(n Navigator) EngineOption {
	return func(e *Engine) {
		e.navigator = n
	}
}

// WithMaxRedirects sets the hop quota per navigation.
//
// Default: 8 (DefaultMaxRedirects)
func WithMaxRedirects(n int) EngineOption {
	return func(e *Engine) {
		e.maxRedirects = n
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithObserver sets the cycle observer.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithJournal sets the journal that records every cycle.
func WithJournal(j Journal) EngineOption {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithTokenGenerator sets the navigation token generator.
// Default: UUIDv7Generator.
func WithTokenGenerator(g TokenGenerator) EngineOption {
	return func(e *Engine) {
		e.tokens = g
	}
}

// WithClock sets the logical clock, e.g. one resumed from a journal's
// last sequence number.
func WithClock(c *Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		queue:        newEventQueue(),
		clock:        NewClock(),
		tokens:       UUIDv7Generator{},
		logger:       slog.Default(),
		observer:     nopObserver{},
		subs:         newBroadcaster(),
		maxRedirects: DefaultMaxRedirects,
		cycles:       NewCycleDetector(),
	}

	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}

	return e
}

// Options returns the engine's options.
func (e *Engine) Options() ir.Options {
	return e.opts
}

// Enqueue submits an event for processing by the Run loop.
// Returns false if the engine has been stopped.
func (e *Engine) Enqueue(ev Event) bool {
	return e.queue.Enqueue(ev)
}

// QueueLen returns the number of events waiting for Run.
func (e *Engine) QueueLen() int {
	return e.queue.Len()
}

// Run processes queued events until ctx is cancelled or Stop is called.
//
// ERROR HANDLING: a failed cycle is logged and the loop continues. Runtime
// errors are properties of one navigation; the next navigation starts a
// fresh cycle.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Info("engine starting")

	for {
		event, ok := e.queue.TryDequeue()
		if ok {
			if _, err := e.Process(ctx, event); err != nil {
				e.logEventError(event, err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			e.logger.Info("engine stopping: context cancelled")
			e.queue.Close()
			return ctx.Err()

		case <-e.queue.Wait():
			if e.queue.Len() == 0 {
				e.logger.Info("engine stopping: queue closed")
				return nil
			}
		}
	}
}

// Stop closes the event queue, which makes Run return, and closes every
// subscription.
func (e *Engine) Stop() {
	e.queue.Close()
	e.subs.close()
}

// Process runs one event synchronously and returns its journal record.
// For a redirect the record's Target is the requested location.
//
// CRITICAL: called only from Run, or from a single driver goroutine when
// the engine is used without Run.
func (e *Engine) Process(ctx context.Context, ev Event) (ir.CycleRecord, error) {
	switch ev.Type {
	case EventNavigation:
		return e.processNavigation(ctx, ev)
	case EventCancel:
		return e.processCancel(ctx), nil
	default:
		return ir.CycleRecord{}, fmt.Errorf("unknown event type: %d", ev.Type)
	}
}

func (e *Engine) processNavigation(ctx context.Context, ev Event) (ir.CycleRecord, error) {
	start := time.Now()
	loc := ir.ParseLocation(ev.URL)
	url := loc.String()

	e.mu.Lock()

	var dropped []ir.CycleRecord
	p := e.pending
	e.pending = nil
	if p != nil && !p.answeredBy(ev) {
		e.cycles.Clear(p.token)
		e.logger.Info("pending redirect superseded",
			"navigation", p.token,
			"target", p.target,
			"by", url,
		)
		dropped = append(dropped, ir.CycleRecord{
			Seq:     e.clock.Next(),
			Token:   p.token,
			URL:     p.target,
			Outcome: ir.CycleSuperseded,
		})
		p = nil
	}
	if p == nil {
		p = &pendingRedirect{token: e.tokens.Generate(), hops: NewQuotaEnforcer(e.maxRedirects)}
	}
	e.inFlight = url

	rec := ir.CycleRecord{
		Seq:   e.clock.Next(),
		Token: p.token,
		URL:   url,
		Route: ir.RoutePath(ev.Chain),
	}

	if len(ev.Chain) == 0 {
		e.cycles.Clear(p.token)
		e.mu.Unlock()
		err := NewNoRouteError(url)
		rec.Outcome = ir.CycleFailed
		rec.Error = err.Error()
		e.emit(ctx, start, append(dropped, rec)...)
		return rec, err
	}

	resolved := schema.Resolve(ev.Chain)
	if e.opts.Debug {
		for _, w := range resolved.Warnings {
			e.logger.Warn("route config overrides inherited keys", "route", rec.Route, "warning", w.String())
		}
		for _, issue := range resolved.Dropped {
			e.logger.Warn("malformed field dropped from schema", "route", rec.Route, "issue", issue.Error())
		}
	}
	rec.SchemaHash, _ = ir.SchemaHash(resolved.Effective)

	out := reconcile.Reconcile(reconcile.Input{
		Location: loc,
		Schema:   resolved.Effective,
		Options:  e.opts,
		Previous: e.current,
	})
	rec.Corrections = out.Corrections
	if e.opts.Debug {
		for _, c := range out.Corrections {
			e.logger.Warn("query param corrected", "url", url, "key", c.Key, "raw", c.Raw, "reason", c.Reason)
		}
	}
	e.logger.Debug("reconciled", "navigation", p.token, "url", url, "outcome", out.Outcome.String())

	var (
		req       *ir.NavigationRequest
		published ir.State
		runErr    error
	)

	switch out.Outcome {
	case ir.OutcomeRedirect:
		var he *HopsExceededError
		switch err := p.hops.Check(p.token); {
		case e.cycles.WouldCycle(p.token, out.Redirect):
			runErr = NewCycleError(p.token, url, out.Redirect)
		case errors.As(err, &he):
			runErr = NewQuotaError(p.token, url, he)
		default:
			e.cycles.Record(p.token, out.Redirect)
			p.target = out.Redirect
			e.pending = p
			req = &ir.NavigationRequest{Token: p.token, Target: out.Redirect, Reason: out.Reason}
			rec.Outcome = ir.CycleRedirect
			rec.Target = out.Redirect
			rec.Reason = out.Reason
		}
		if runErr != nil {
			e.cycles.Clear(p.token)
			rec.Outcome = ir.CycleFailed
			rec.Error = runErr.Error()
		}

	default:
		e.cycles.Clear(p.token)
		e.preceding = e.current
		e.current = out.Snapshot(loc, resolved.Effective)
		published = out.State
		rec.Outcome = ir.CycleReconciled
		rec.State = out.State
	}

	e.mu.Unlock()

	e.emit(ctx, start, append(dropped, rec)...)

	if published != nil {
		e.logger.Info("state published", "navigation", p.token, "url", url)
		e.subs.publish(published)
	}
	if req != nil {
		e.logger.Info("redirect requested", "navigation", req.Token, "from", url, "to", req.Target, "reason", req.Reason)
		if err := e.navigate(ctx, *req); err != nil {
			return rec, err
		}
	}
	return rec, runErr
}

// processCancel restores the in-flight location to the last completed one.
// A pending redirect belongs to the cancelled navigation and is dropped.
func (e *Engine) processCancel(ctx context.Context) ir.CycleRecord {
	start := time.Now()

	e.mu.Lock()
	rec := ir.CycleRecord{Seq: e.clock.Next(), Outcome: ir.CycleCancelled, URL: e.inFlight}
	if e.pending != nil {
		e.cycles.Clear(e.pending.token)
		rec.Token = e.pending.token
		e.pending = nil
	}
	e.inFlight = e.current.URL()
	rec.Target = e.inFlight
	e.mu.Unlock()

	e.logger.Info("navigation cancelled", "url", rec.URL, "restored", rec.Target)
	e.emit(ctx, start, rec)
	return rec
}

func (e *Engine) navigate(ctx context.Context, req ir.NavigationRequest) error {
	if e.navigator == nil {
		e.logger.Debug("no navigator configured", "target", req.Target)
		return nil
	}
	if err := e.navigator.Navigate(ctx, req); err != nil {
		return fmt.Errorf("navigate to %s: %w", req.Target, err)
	}
	return nil
}

// emit journals and observes records. Journal failures are logged, not
// returned: the journal is diagnostic history and must never block
// navigation.
func (e *Engine) emit(ctx context.Context, start time.Time, recs ...ir.CycleRecord) {
	elapsed := time.Since(start)
	for _, rec := range recs {
		if e.journal != nil {
			if err := e.journal.WriteCycle(ctx, rec); err != nil {
				e.logger.Error("journal write failed", "error", err, "seq", rec.Seq, "navigation", rec.Token)
			}
		}
		e.observer.ObserveCycle(rec, elapsed)
	}
}

// logEventError logs a failed event with enough context to reproduce it.
func (e *Engine) logEventError(ev Event, err error) {
	attrs := []any{
		"error", err,
		"event_type", ev.Type.String(),
		"url", ev.URL,
		"route", ir.RoutePath(ev.Chain),
	}
	if ev.Cause != "" {
		attrs = append(attrs, "cause", ev.Cause)
	}
	var re *RuntimeError
	if errors.As(err, &re) {
		attrs = append(attrs, "code", string(re.Code))
	}
	e.logger.Error("navigation processing failed", attrs...)
}
