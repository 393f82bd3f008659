// Package ir provides the shared data model for querystate: decoded
// values, field specifications, route configuration trees, canonical
// states and query locations.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - A nil Value means "unset" and is distinct from Null
//   - Query preserves key order; duplicate keys are last-write-wins
//   - Numbers render with JavaScript Number#toString semantics
//   - Canonical JSON (RFC 8785) is the only serialization used for hashes
//     and compressed query blobs
package ir
