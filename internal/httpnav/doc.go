// Package httpnav adapts the reconciler to HTTP servers as chi-compatible
// middleware.
//
// Canonicalize reconciles each request's query string against a route's
// effective schema. A non-canonical GET or HEAD request is answered with a
// redirect to its canonical URL; a canonical one continues with the
// reconciled state in the request context, where StateFrom reads it.
//
//	r := chi.NewRouter()
//	r.With(httpnav.Canonicalize(doc.Chain("/users"), doc.Options)).
//		Get("/users", listUsers)
//
// HTTP is stateless, so every request is reconciled on its own: there is
// no previous snapshot to carry values over from, and guard replay sends
// the client back to its referrer.
package httpnav
