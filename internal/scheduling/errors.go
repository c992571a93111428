// Package scheduling implements the event-scheduling core of the
// marketplace: slug allocation, recurring-series expansion, host
// availability checks and the mutation rules that govern which fields
// of an event may change once bookings exist or a series has begun.
//
// The package is transport-agnostic. Persistence, booking counts and
// audit notifications are consumed through the narrow interfaces in
// store.go; handlers translate the typed errors defined here into
// HTTP responses.
package scheduling

import (
	"fmt"
	"time"
)

// ValidationError reports malformed or contradictory input. It names
// the offending field so callers can correct it.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NotFoundError reports that a referenced resource does not exist or
// is soft-deleted.
type NotFoundError struct {
	Resource string
	ID       uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// ForbiddenError reports that the caller does not own the event being
// mutated.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string { return "forbidden: " + e.Reason }

// ConflictError reports a double-booking or a mutation blocked by
// existing active bookings. Exactly one of the two halves is
// populated: either the conflicting event, or the blocking booking
// count.
type ConflictError struct {
	Reason string

	// Set when a candidate window overlaps an existing event.
	EventID    uint64
	EventTitle string
	StartAt    time.Time
	EndAt      time.Time

	// Set when active bookings block a date change.
	ActiveBookings int
}

func (e *ConflictError) Error() string {
	if e.EventID != 0 {
		return fmt.Sprintf("conflict: %s (event %d %q %s–%s)",
			e.Reason, e.EventID, e.EventTitle,
			e.StartAt.Format(time.RFC3339), e.EndAt.Format(time.RFC3339))
	}
	if e.ActiveBookings > 0 {
		return fmt.Sprintf("conflict: %s (%d active bookings)", e.Reason, e.ActiveBookings)
	}
	return "conflict: " + e.Reason
}

// InvalidOperationError reports a mutation that is structurally
// disallowed regardless of input values, such as changing the dates
// of a series template.
type InvalidOperationError struct {
	Reason string
}

func (e *InvalidOperationError) Error() string { return "invalid operation: " + e.Reason }
