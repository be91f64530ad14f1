// Package repository holds the raw-SQL data access layer. This file
// defines error types that are reused across multiple repositories.
// These sentinel values allow higher layers such as handlers to
// distinguish between different failure scenarios: ErrForbidden means
// the current user is not authorized to act on a resource owned by
// someone else, ErrConflict signals state that blocks an operation
// (e.g. booking a sold-out ticket tier).
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own. Handlers should translate this into an
// HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because
// of conflicting state, such as cancelling an already-cancelled
// booking. Handlers should translate this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrEventNotFound is returned when an event lookup matches no row.
var ErrEventNotFound = errors.New("event not found")

// ErrSoldOut is returned when a booking requests more tickets than a
// tier has left.
var ErrSoldOut = errors.New("not enough tickets available")

// ErrEmailExists is returned on user creation when the email is taken.
var ErrEmailExists = errors.New("email already exists")
