package scheduling

import (
	"context"
	"time"

	"github.com/iliyamo/events-marketplace/internal/model"
)

// EventStore is the persistence surface the scheduling core needs.
// repository.EventRepo implements it over MySQL; tests use an
// in-memory fake.
type EventStore interface {
	// GetEvent returns a non-deleted event, or (nil, nil) when no
	// such event exists.
	GetEvent(ctx context.Context, id uint64) (*model.Event, error)

	// SlugExists reports whether any non-deleted event already uses
	// the slug.
	SlugExists(ctx context.Context, slug string) (bool, error)

	// CategoryExists reports whether the referenced category exists.
	CategoryExists(ctx context.Context, id uint64) (bool, error)

	// CreateEvent inserts the event and populates its ID and
	// timestamps.
	CreateEvent(ctx context.Context, e *model.Event) error

	// UpdateEventFields applies the given column/value pairs to one
	// event row.
	UpdateEventFields(ctx context.Context, id uint64, fields map[string]any) error

	// FindOverlapping returns the host's non-terminal, non-deleted
	// events whose [start_at, end_at) window overlaps [start, end),
	// excluding excludeID when non-zero, ordered by start time.
	FindOverlapping(ctx context.Context, hostID uint64, start, end time.Time, excludeID uint64) ([]model.Event, error)

	// ListFutureInstances returns the instances of a template whose
	// start is at or after from, ordered by start time.
	ListFutureInstances(ctx context.Context, parentID uint64, from time.Time) ([]model.Event, error)

	// SoftDeleteEvent marks the event deleted.
	SoftDeleteEvent(ctx context.Context, id uint64, at time.Time) error

	// CancelFutureInstances flips future instances of a template to
	// CANCELLED and returns how many rows changed.
	CancelFutureInstances(ctx context.Context, parentID uint64, from time.Time) (int64, error)

	// InTx runs fn against a store bound to one serializable
	// transaction. The availability pre-check and the writes that
	// depend on it always run inside InTx so that two concurrent
	// requests cannot both pass the check.
	InTx(ctx context.Context, fn func(tx EventStore) error) error
}

// BookingCounter exposes the one booking query the mutation policy
// needs.
type BookingCounter interface {
	// CountActiveByEvent counts bookings for the event whose status
	// is neither CANCELLED nor REFUNDED.
	CountActiveByEvent(ctx context.Context, eventID uint64) (int, error)
}

// AuditEntry is the old/new snapshot handed to the audit collaborator
// after a successful mutation.
type AuditEntry struct {
	Action  string // event.created, event.updated, event.deleted
	ActorID uint64
	EventID uint64
	Old     *model.Event
	New     *model.Event
	At      time.Time
}

// Auditor records audit entries. Implementations must not block the
// request and must swallow their own failures; the scheduling core
// never fails an operation because auditing did.
type Auditor interface {
	Record(ctx context.Context, entry AuditEntry)
}
