// Package repository contains the MySQL data access layer. Sentinel
// errors defined here let handlers distinguish failure scenarios:
// ErrForbidden maps to a 403, ErrConflict to a 409 and the not-found
// values to a 404.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed because of
// conflicting state, such as cancelling a booking that was already
// refunded.
var ErrConflict = errors.New("conflict")

// ErrEventNotFound indicates that an event does not exist or is
// soft-deleted.
var ErrEventNotFound = errors.New("event not found")

// ErrBookingNotFound indicates that a booking was not located in the DB.
var ErrBookingNotFound = errors.New("booking not found")

// ErrNoChange indicates an UPDATE attempted to set fields equal to
// their current values.
var ErrNoChange = errors.New("no change")
