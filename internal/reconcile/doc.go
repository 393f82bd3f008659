// Package reconcile turns a location's raw query into a canonical state.
//
// Reconcile is a pure function of its Input. Its outcome is either
// Reconciled, carrying a State that is exactly reproducible from the URL,
// or Redirect, carrying the canonical location the navigator must move to
// before any state is published. Running Reconcile on a redirect target
// always yields Reconciled.
//
// Plan builds redirect targets and Compress/Decompress implement the
// single-parameter compressed query form.
package reconcile
