// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios: a
// missing row is reported as sql.ErrNoRows by the repository that
// hit it, ErrForbidden means the row exists but belongs to someone
// else, and ErrConflict signals state that blocks the operation.
// Handlers must surface ErrForbidden as 403 rather than folding it
// into 404, so a caller probing a foreign record gets consistent
// behavior across every endpoint.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because
// of conflicting state, such as deleting a service that still has
// bookings. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")
