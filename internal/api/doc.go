// Package api defines wire-format types and converters for the HTTP API
// layer. It translates store models, cache snapshots, and service errors
// into transport-friendly DTOs that editor clients and the CLI can render
// without coupling to internal types.
//
// # Key Types
//
// PositionFrame: a timeline frame with its start in milliseconds.
//
// FrameSnapshot: a frame with every performer's coordinates, as served by
// the position cache.
//
// Performer/Part: the roster, with control types exposed as "LED" or "FIBER".
//
// ErrorResponse: error text plus a stable kind ("overlap", "lock_conflict",
// "validation", "not_found", "conflict", "internal") and, for overlap and
// lock conflicts, the conflicting frame id or holder.
//
// # Requests
//
// Request types carry go-playground/validator tags; Validate wraps failures
// in services.ErrValidation so the transport maps them to 400.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Field names of mutation inputs (frameID,
// dancerName) match what editor clients already send. Timestamps use
// RFC3339 with milliseconds.
package api
