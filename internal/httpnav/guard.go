package httpnav

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/roach88/querystate/internal/guard"
)

// Guard returns middleware that admits a request only when its reconciled
// state matches table. It must run after Canonicalize; a request without
// reconciled state has nothing to match and is admitted.
//
// A rejected request is redirected to fallback, or back to its referrer
// when the referrer is the fallback. A fallback that is the request itself
// is a configuration error and answers 500.
func Guard(table guard.Table, fallback string, options ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(options)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state, _ := StateFrom(r.Context())
			uri := r.URL.RequestURI()

			d, err := guard.Evaluate(table, guard.Context{
				Mode:      guard.Activate,
				State:     state,
				Fallback:  fallback,
				Preceding: referrer(r),
				InFlight:  uri,
			})
			if err != nil {
				if errors.Is(err, guard.ErrLoop) {
					cfg.logger.Error("guard fallback loops to itself", "url", uri, "fallback", fallback)
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if cfg.observer != nil {
				cfg.observer.ObserveGuard(guard.Activate, d)
			}

			switch d.Action {
			case guard.ActionReplay:
				http.Redirect(w, r, fallback, http.StatusSeeOther)
			case guard.ActionNavigate:
				http.Redirect(w, r, d.Target, http.StatusFound)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// referrer returns the same-host Referer as a request URI, or "".
func referrer(r *http.Request) string {
	ref := r.Header.Get("Referer")
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return ""
	}
	return u.RequestURI()
}
