// Package store provides the SQLite-backed navigation journal.
//
// Each processed navigation event is appended as a cycle row keyed by the
// engine's logical sequence number, with its corrections in a child table.
// The journal is diagnostic history for tracing and replay; it is never
// read to restore state, because the URL is the only source of truth.
//
// # Ordering
//
// All ordering uses seq (the logical clock), never timestamps, so a
// replay reads records back in exactly the order they were produced.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Corrections must reference a cycle
//
// States are stored as RFC 8785 canonical JSON (see ir.MarshalCanonical),
// so identical states are byte-identical rows.
package store
