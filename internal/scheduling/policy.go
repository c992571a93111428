package scheduling

import (
	"fmt"
	"time"

	"github.com/iliyamo/events-marketplace/internal/model"
)

// MutationRequest is the input to the mutation state machine: what
// kind of event is being changed, how many active bookings it has and
// whether the update touches the date fields.
type MutationRequest struct {
	Role           model.SeriesRole
	ActiveBookings int
	DatesChanged   bool
}

// Decision is the outcome of the state machine. When Deny is nil the
// mutation may proceed; CheckAvailability additionally requires the
// new window to pass the availability checker (excluding the event
// itself) before anything is written.
type Decision struct {
	Deny              error
	CheckAvailability bool
}

// Allowed reports whether the mutation may proceed.
func (d Decision) Allowed() bool { return d.Deny == nil }

// DecideMutation evaluates the (role × bookings × field-diff) table.
// Every denial carries a typed error explaining which rule fired:
//
//	standalone, dates changed  -> needs zero active bookings + availability
//	standalone, content only   -> allowed
//	template,   dates changed  -> never allowed; cancel and recreate
//	template,   content only   -> allowed (optionally propagated)
//	instance,   dates changed  -> needs zero active bookings + availability
//	instance,   content only   -> allowed regardless of bookings
func DecideMutation(req MutationRequest) Decision {
	if !req.DatesChanged {
		return Decision{}
	}
	switch req.Role {
	case model.RoleTemplate:
		return Decision{Deny: &InvalidOperationError{
			Reason: "series template dates are immutable; cancel the series and create a new one",
		}}
	default: // standalone or instance
		if req.ActiveBookings > 0 {
			return Decision{Deny: &ConflictError{
				Reason:         "event dates cannot change while active bookings exist",
				ActiveBookings: req.ActiveBookings,
			}}
		}
		return Decision{CheckAvailability: true}
	}
}

// validateWindow enforces end > start.
func validateWindow(start, end time.Time) error {
	if !end.After(start) {
		return &ValidationError{Field: "endAt", Reason: "must be after startAt"}
	}
	return nil
}

// validateContent enforces the cross-field rules that hold for every
// role: a paid event needs a positive price, physical and hybrid
// events need a venue, virtual and hybrid events need a meeting URL.
func validateContent(mode model.EventMode, venue, meetingURL string, isFree bool, priceCents uint32) error {
	if !mode.Valid() {
		return &ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown mode %q", mode)}
	}
	if !isFree && priceCents == 0 {
		return &ValidationError{Field: "priceCents", Reason: "paid events require a positive price"}
	}
	if mode.HasVenue() && venue == "" {
		return &ValidationError{Field: "venue", Reason: "physical and hybrid events require a venue"}
	}
	if mode.HasMeetingURL() && meetingURL == "" {
		return &ValidationError{Field: "meetingUrl", Reason: "virtual and hybrid events require a meeting URL"}
	}
	return nil
}

// validateRecurrence enforces the creation-time series rules: pattern
// and end bound both present and valid, the bound strictly after the
// start, at least one full pattern step past it, and not before the
// first instance's end, so that expansion always yields at least one
// instance.
func validateRecurrence(start, end time.Time, pattern *model.RecurrencePattern, until *time.Time) error {
	if pattern == nil || until == nil {
		return &ValidationError{Field: "recurrencePattern", Reason: "recurring events require recurrencePattern and recurrenceEndDate"}
	}
	if !pattern.Valid() {
		return &ValidationError{Field: "recurrencePattern", Reason: fmt.Sprintf("unknown pattern %q", *pattern)}
	}
	if !until.After(start) {
		return &ValidationError{Field: "recurrenceEndDate", Reason: "must be after startAt"}
	}
	if until.Before(start.AddDate(0, 0, pattern.MinSpanDays())) {
		return &ValidationError{
			Field:  "recurrenceEndDate",
			Reason: fmt.Sprintf("must be at least %d days after startAt for %s recurrence", pattern.MinSpanDays(), *pattern),
		}
	}
	firstEnd := stepForward(start, *pattern).Add(end.Sub(start))
	if until.Before(firstEnd) {
		return &ValidationError{Field: "recurrenceEndDate", Reason: "must not end before the first generated instance"}
	}
	return nil
}
