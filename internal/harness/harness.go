package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/querystate/internal/compiler"
	"github.com/roach88/querystate/internal/engine"
	"github.com/roach88/querystate/internal/guard"
	"github.com/roach88/querystate/internal/ir"
	"github.com/roach88/querystate/internal/store"
	"github.com/roach88/querystate/internal/testutil"
)

// Harness drives one engine through a scenario's flow. Redirects and guard
// navigations are recorded by the navigator and fed back as follow-up
// events, the way a router would deliver them.
type Harness struct {
	doc     *compiler.Document
	engine  *engine.Engine
	store   *store.Store
	nav     *testutil.RecordingNavigator
	logger  *slog.Logger
	journal []ir.CycleRecord

	mu       sync.Mutex
	decision *guard.Decision
}

// ObserveCycle implements engine.Observer.
func (h *Harness) ObserveCycle(rec ir.CycleRecord, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.journal = append(h.journal, rec)
}

// ObserveGuard implements engine.Observer.
func (h *Harness) ObserveGuard(_ guard.Mode, d guard.Decision) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.decision = &d
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory journal with sequential
// navigation tokens, so identical scenarios produce identical traces.
// A returned error means the scenario could not run; failed expectations
// are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	doc, err := loadRoutes(scenario.Routes)
	if err != nil {
		return nil, fmt.Errorf("failed to load routes: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		doc:    doc,
		store:  st,
		nav:    &testutil.RecordingNavigator{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	opts := []engine.EngineOption{
		engine.WithOptions(doc.Options),
		engine.WithNavigator(h.nav),
		engine.WithJournal(st),
		engine.WithObserver(h),
		engine.WithTokenGenerator(testutil.NewSequentialTokens(scenario.TokenPrefix)),
		engine.WithLogger(h.logger),
	}
	if scenario.MaxRedirects > 0 {
		opts = append(opts, engine.WithMaxRedirects(scenario.MaxRedirects))
	}
	h.engine = engine.New(opts...)
	defer h.engine.Stop()

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("flow step %d: %w", i, err)
		}
	}

	recs, err := st.ReadCycles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	for _, rec := range recs {
		result.Trace = append(result.Trace, traceEvent(rec))
	}
	result.State, _ = h.engine.Current()

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// stepRun collects what one flow step produced.
type stepRun struct {
	cycles   []ir.CycleRecord
	err      error
	decision *guard.Decision
}

func (h *Harness) executeStep(ctx context.Context, index int, step FlowStep, result *Result) error {
	h.mu.Lock()
	mark := len(h.journal)
	h.decision = nil
	h.mu.Unlock()

	var run stepRun
	switch {
	case step.Navigate != "":
		route := step.Route
		if route == "" {
			route = ir.ParseLocation(step.Navigate).Path
		}
		run.err = h.navigate(ctx, step.Navigate, route, "")
		if run.err == nil {
			run.err = h.follow(ctx, step.Navigate, route)
		}

	case step.Cancel:
		if _, err := h.engine.Process(ctx, engine.Event{Type: engine.EventCancel}); err != nil {
			return err
		}

	default:
		table, err := guardTable(step.Table)
		if err != nil {
			return err
		}
		if step.Guard == "activate" {
			_, run.err = h.engine.CanActivate(ctx, table)
		} else {
			_, run.err = h.engine.CanDeactivate(ctx, table, nil)
		}
		if run.err == nil {
			run.err = h.follow(ctx, "", "")
		}
	}

	h.mu.Lock()
	run.cycles = append(run.cycles, h.journal[mark:]...)
	run.decision = h.decision
	h.mu.Unlock()

	var rerr *engine.RuntimeError
	if run.err != nil && !errors.As(run.err, &rerr) {
		return run.err
	}

	if step.Expect != nil {
		for _, msg := range h.checkExpect(step.Expect, run) {
			result.AddError(fmt.Sprintf("flow[%d]: %s", index, msg))
		}
	} else if run.err != nil {
		result.AddError(fmt.Sprintf("flow[%d]: unexpected error: %v", index, run.err))
	}

	h.logger.Info("flow step completed", "step", index, "cycles", len(run.cycles))
	return nil
}

func (h *Harness) navigate(ctx context.Context, url, route, cause string) error {
	_, err := h.engine.Process(ctx, engine.Event{
		Type:  engine.EventNavigation,
		URL:   url,
		Chain: h.doc.Chain(route),
		Cause: cause,
	})
	return err
}

// follow delivers recorded navigation requests until none remain. A
// target on the original URL's path keeps the step's route address.
func (h *Harness) follow(ctx context.Context, origin, route string) error {
	originPath := ir.ParseLocation(origin).Path
	for {
		reqs := h.nav.Take()
		if len(reqs) == 0 {
			return nil
		}
		for _, req := range reqs {
			target := ir.ParseLocation(req.Target).Path
			r := target
			if origin != "" && target == originPath {
				r = route
			}
			if err := h.navigate(ctx, req.Target, r, req.Token); err != nil {
				return err
			}
		}
	}
}

func guardTable(rules map[string]GuardRule) (guard.Table, error) {
	table := make(guard.Table, len(rules))
	for name, rule := range rules {
		match, err := ir.FromAny(rule.Match)
		if err != nil {
			return nil, fmt.Errorf("guard rule %q: %w", name, err)
		}
		r := guard.Rule{Match: match}
		if rule.Default != nil {
			if r.Default, err = ir.FromAny(rule.Default); err != nil {
				return nil, fmt.Errorf("guard rule %q default: %w", name, err)
			}
		}
		table[name] = r
	}
	return table, nil
}

// loadRoutes compiles a single YAML or CUE route file.
func loadRoutes(path string) (*compiler.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return compiler.CompileYAML(data)
	case ".cue":
		v := cuecontext.New().CompileBytes(data, cue.Filename(path))
		return compiler.CompileRoutes(v)
	default:
		return nil, fmt.Errorf("unsupported route file %q: want .yaml, .yml or .cue", path)
	}
}
