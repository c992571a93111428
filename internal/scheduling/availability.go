package scheduling

import (
	"context"
	"time"

	"github.com/iliyamo/events-marketplace/internal/model"
)

// ConflictFinder is the overlap query the checker needs. The store's
// query already applies the non-terminal and soft-delete filters.
type ConflictFinder interface {
	FindOverlapping(ctx context.Context, hostID uint64, start, end time.Time, excludeID uint64) ([]model.Event, error)
}

// AvailabilityChecker decides whether a host is free for a candidate
// window. A single pair of inequalities (existing.start < end &&
// existing.end > start) is the whole half-open overlap test; it
// covers partial overlaps and full containment in both directions.
type AvailabilityChecker struct {
	Store ConflictFinder
}

// FindConflict returns the first existing event of the host that
// overlaps [start, end), or nil when the window is free. excludeID,
// when non-zero, ignores that event so an update does not conflict
// with itself.
func (c *AvailabilityChecker) FindConflict(ctx context.Context, hostID uint64, start, end time.Time, excludeID uint64) (*model.Event, error) {
	overlaps, err := c.Store.FindOverlapping(ctx, hostID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	if len(overlaps) == 0 {
		return nil, nil
	}
	return &overlaps[0], nil
}

// HasConflict reports whether any existing event of the host overlaps
// the candidate window.
func (c *AvailabilityChecker) HasConflict(ctx context.Context, hostID uint64, start, end time.Time, excludeID uint64) (bool, error) {
	ev, err := c.FindConflict(ctx, hostID, start, end, excludeID)
	if err != nil {
		return false, err
	}
	return ev != nil, nil
}

// conflictError builds the ConflictError reported when ev blocks a
// candidate window.
func conflictError(ev *model.Event) *ConflictError {
	return &ConflictError{
		Reason:     "host already has an event in this time window",
		EventID:    ev.ID,
		EventTitle: ev.Title,
		StartAt:    ev.StartAt,
		EndAt:      ev.EndAt,
	}
}
