package httpnav

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/roach88/querystate/internal/ir"
	"github.com/roach88/querystate/internal/reconcile"
	"github.com/roach88/querystate/internal/schema"
)

// Navigation is the reconciled view of one request.
type Navigation struct {
	// URL is the canonical request URI.
	URL        string
	Route      string
	SchemaHash string
	State      ir.State

	// Corrections are set only for non-GET requests that were let
	// through without a redirect.
	Corrections []ir.Correction
}

type navigationKey struct{}

// StateFrom returns the reconciled state stored by Canonicalize.
func StateFrom(ctx context.Context) (ir.State, bool) {
	nav, ok := NavigationFrom(ctx)
	if !ok {
		return nil, false
	}
	return nav.State, true
}

// NavigationFrom returns the Navigation stored by Canonicalize.
func NavigationFrom(ctx context.Context) (*Navigation, bool) {
	nav, ok := ctx.Value(navigationKey{}).(*Navigation)
	return nav, ok
}

// Canonicalize returns middleware that reconciles requests against the
// effective schema of chain.
//
// Only GET and HEAD requests are redirected. Other methods continue with
// the reconciled state and their corrections, since a redirect would drop
// the request body.
func Canonicalize(chain []*ir.RouteNode, opts ir.Options, options ...Option) func(http.Handler) http.Handler {
	return newCanonicalizer(chain, opts, newConfig(options)).middleware
}

// CanonicalizeTree resolves each request's chain from its URL path against
// roots. Requests addressing no route pass through untouched. Each route's
// schema is resolved once, on its first request.
func CanonicalizeTree(roots []*ir.RouteNode, opts ir.Options, options ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(options)
	return func(next http.Handler) http.Handler {
		var mu sync.Mutex
		handlers := make(map[string]http.Handler)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			chain := ir.Chain(roots, r.URL.Path)
			if len(chain) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			route := ir.RoutePath(chain)
			mu.Lock()
			h, ok := handlers[route]
			if !ok {
				h = newCanonicalizer(chain, opts, cfg).middleware(next)
				handlers[route] = h
			}
			mu.Unlock()

			h.ServeHTTP(w, r)
		})
	}
}

func newCanonicalizer(chain []*ir.RouteNode, opts ir.Options, cfg config) *canonicalizer {
	route := ir.RoutePath(chain)
	res := schema.Resolve(chain)
	if opts.Debug {
		for _, issue := range res.Dropped {
			cfg.logger.Warn("field dropped from schema", "route", route, "field", issue.Field, "code", issue.Code, "reason", issue.Message)
		}
	}
	return &canonicalizer{
		cfg:    cfg,
		opts:   opts,
		schema: res.Effective,
		route:  route,
		hash:   ir.MustSchemaHash(res.Effective),
	}
}

type canonicalizer struct {
	cfg    config
	opts   ir.Options
	schema *ir.StateConfig
	route  string
	hash   string
}

func (c *canonicalizer) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		uri := r.URL.RequestURI()
		res := reconcile.Reconcile(reconcile.Input{
			Location: ir.ParseLocation(uri),
			Schema:   c.schema,
			Options:  c.opts,
		})

		rec := ir.CycleRecord{
			URL:         uri,
			Route:       c.route,
			SchemaHash:  c.hash,
			Corrections: res.Corrections,
		}

		if c.opts.Debug {
			for _, corr := range res.Corrections {
				c.cfg.logger.Warn("query value corrected", "url", uri, "key", corr.Key, "raw", corr.Raw, "reason", corr.Reason)
			}
		}

		if res.Outcome == ir.OutcomeRedirect && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
			rec.Outcome = ir.CycleRedirect
			rec.Target = res.Redirect
			rec.Reason = res.Reason
			c.observe(rec, start)
			http.Redirect(w, r, res.Redirect, c.cfg.redirectStatus)
			return
		}

		nav := &Navigation{URL: uri, Route: c.route, SchemaHash: c.hash, State: res.State}
		if res.Outcome == ir.OutcomeRedirect {
			nav.Corrections = res.Corrections
		}
		rec.Outcome = ir.CycleReconciled
		rec.State = res.State
		c.observe(rec, start)

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), navigationKey{}, nav)))
	})
}

func (c *canonicalizer) observe(rec ir.CycleRecord, start time.Time) {
	if c.cfg.observer != nil {
		c.cfg.observer.ObserveCycle(rec, time.Since(start))
	}
}
