// Package engine drives the navigation cycle.
//
// The navigator delivers navigation events; the engine resolves each
// event's route chain into an effective schema, reconciles the URL against
// it, and either publishes the canonical state or asks the navigator for a
// corrective redirect. Nothing is published for a redirect: the follow-up
// navigation, correlated by token, publishes instead.
//
// ARCHITECTURE:
//
// Single-Writer Event Loop:
// Events are processed one at a time, in arrival order, by Run (or by a
// single caller of Process). Reconciliation is pure and synchronous; the
// only suspension point is the redirect handshake with the navigator.
//
// Event Processing Flow:
//  1. Navigator enqueues an Event (navigation or cancel)
//  2. Run dequeues it and calls Process
//  3. A pending redirect not answered by the event is superseded
//  4. The route chain is folded into an effective schema
//  5. The URL is reconciled; Reconciled publishes, Redirect navigates
//  6. The cycle is journaled and observed
//
// Termination:
// Each navigation carries a token. A redirect chain that requests the same
// target twice fails with REDIRECT_CYCLE; one longer than MaxRedirects
// fails with REDIRECT_QUOTA. Together they guarantee a misbehaving
// navigator cannot loop the engine forever.
//
// Logical Clock:
// Journal records are stamped with Clock.Next(), never wall time.
package engine
