package model

import "time"

// EventStatus is the lifecycle state of an event. Only the two
// terminal states (CANCELLED, COMPLETED) are excluded from host
// double-booking checks.
type EventStatus string

const (
	StatusDraft           EventStatus = "DRAFT"
	StatusPendingApproval EventStatus = "PENDING_APPROVAL"
	StatusPublished       EventStatus = "PUBLISHED"
	StatusCancelled       EventStatus = "CANCELLED"
	StatusCompleted       EventStatus = "COMPLETED"
)

// Valid reports whether s is one of the known lifecycle states.
func (s EventStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusPublished, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether the status excludes the event from
// availability checks.
func (s EventStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// RecurrencePattern is the step applied between generated instances
// of a recurring series.
type RecurrencePattern string

const (
	RecurDaily   RecurrencePattern = "DAILY"
	RecurWeekly  RecurrencePattern = "WEEKLY"
	RecurMonthly RecurrencePattern = "MONTHLY"
)

// Valid reports whether p is a supported pattern.
func (p RecurrencePattern) Valid() bool {
	return p == RecurDaily || p == RecurWeekly || p == RecurMonthly
}

// MinSpanDays is the minimum number of days the series end bound must
// lie past the template start so that at least one instance exists.
func (p RecurrencePattern) MinSpanDays() int {
	switch p {
	case RecurDaily:
		return 1
	case RecurWeekly:
		return 7
	case RecurMonthly:
		return 30
	}
	return 0
}

// EventMode describes how attendees participate.
type EventMode string

const (
	ModePhysical EventMode = "PHYSICAL"
	ModeVirtual  EventMode = "VIRTUAL"
	ModeHybrid   EventMode = "HYBRID"
)

// Valid reports whether m is a supported mode.
func (m EventMode) Valid() bool {
	return m == ModePhysical || m == ModeVirtual || m == ModeHybrid
}

// HasVenue reports whether the mode requires a physical venue.
func (m EventMode) HasVenue() bool { return m == ModePhysical || m == ModeHybrid }

// HasMeetingURL reports whether the mode requires a meeting URL.
func (m EventMode) HasMeetingURL() bool { return m == ModeVirtual || m == ModeHybrid }

// SeriesRole identifies what part an event plays in a recurring
// series, derived from IsRecurring and ParentEventID.
type SeriesRole int

const (
	// RoleStandalone is a plain bookable event outside any series.
	RoleStandalone SeriesRole = iota
	// RoleTemplate is the root record of a series. It holds the shared
	// content and the recurrence bounds and is not itself bookable.
	RoleTemplate
	// RoleInstance is one generated occurrence of a series.
	RoleInstance
)

func (r SeriesRole) String() string {
	switch r {
	case RoleTemplate:
		return "TEMPLATE"
	case RoleInstance:
		return "INSTANCE"
	}
	return "STANDALONE"
}

// Event mirrors the `events` table. StartAt/EndAt are stored in UTC;
// EndAt is exclusive, so an event ending exactly when another starts
// does not conflict with it.
type Event struct {
	ID                uint64
	Slug              string
	HostID            uint64
	CategoryID        uint64
	Title             string
	Description       string
	StartAt           time.Time
	EndAt             time.Time
	Timezone          string
	IsRecurring       bool
	RecurrencePattern *RecurrencePattern
	RecurrenceEndAt   *time.Time
	ParentEventID     *uint64
	Status            EventStatus
	Mode              EventMode
	Venue             string
	MeetingURL        string
	IsFree            bool
	PriceCents        uint32
	Capacity          uint32
	DeletedAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Role derives the series role from the recurrence fields. An event
// is exactly one of standalone, template or instance.
func (e *Event) Role() SeriesRole {
	switch {
	case e.IsRecurring && e.ParentEventID == nil:
		return RoleTemplate
	case !e.IsRecurring && e.ParentEventID != nil:
		return RoleInstance
	}
	return RoleStandalone
}
