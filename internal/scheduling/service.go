package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/events-marketplace/internal/model"
)

// Scheduler is the entry point of the scheduling core. Every
// operation validates its input, consults the mutation policy and the
// availability checker, and performs all dependent writes inside one
// serializable transaction so concurrent requests cannot slip an
// overlapping window past the pre-check.
type Scheduler struct {
	events   EventStore
	bookings BookingCounter
	audit    Auditor
	clock    Clock
}

// NewScheduler wires the core to its collaborators. audit may be nil
// when no audit trail is configured.
func NewScheduler(events EventStore, bookings BookingCounter, audit Auditor, clock Clock) *Scheduler {
	if events == nil || bookings == nil {
		panic("nil store passed to NewScheduler")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{events: events, bookings: bookings, audit: audit, clock: clock}
}

// CreateEventInput carries everything needed to create a standalone
// event or a whole series.
type CreateEventInput struct {
	Title             string
	Description       string
	CategoryID        uint64
	StartAt           time.Time
	EndAt             time.Time
	Timezone          string
	Mode              model.EventMode
	Venue             string
	MeetingURL        string
	IsFree            bool
	PriceCents        uint32
	Capacity          uint32
	IsRecurring       bool
	RecurrencePattern *model.RecurrencePattern
	RecurrenceEndAt   *time.Time
}

// CreateEventResult is the created event plus, for a series, its
// generated instances. Truncated is set when the series would have
// needed more than MaxSeriesInstances windows.
type CreateEventResult struct {
	Event     *model.Event
	Instances []model.Event
	Truncated bool
}

// CreateEvent validates the payload, allocates a slug and persists
// the event. For a recurring event it expands the series first, then
// checks host availability once per instance and writes the template
// together with every instance in a single transaction.
func (s *Scheduler) CreateEvent(ctx context.Context, hostID uint64, in CreateEventInput) (*CreateEventResult, error) {
	now := s.clock.Now()
	if strings.TrimSpace(in.Title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "required"}
	}
	if err := validateWindow(in.StartAt, in.EndAt); err != nil {
		return nil, err
	}
	if in.StartAt.Before(now) {
		return nil, &ValidationError{Field: "startAt", Reason: "must not be in the past"}
	}
	if err := validateContent(in.Mode, in.Venue, in.MeetingURL, in.IsFree, in.PriceCents); err != nil {
		return nil, err
	}

	var expansion Expansion
	var seriesEnd time.Time
	if in.IsRecurring {
		var bound *time.Time
		if in.RecurrenceEndAt != nil {
			seriesEnd = seriesEndBound(*in.RecurrenceEndAt)
			bound = &seriesEnd
		}
		if err := validateRecurrence(in.StartAt, in.EndAt, in.RecurrencePattern, bound); err != nil {
			return nil, err
		}
		expansion = ExpandSeries(in.StartAt, in.EndAt, *in.RecurrencePattern, seriesEnd)
	}

	if in.CategoryID != 0 {
		ok, err := s.events.CategoryExists(ctx, in.CategoryID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &NotFoundError{Resource: "category", ID: in.CategoryID}
		}
	}

	alloc := &SlugAllocator{Store: s.events}
	slug, err := alloc.Allocate(ctx, in.Title, "")
	if err != nil {
		return nil, err
	}

	result := &CreateEventResult{Truncated: expansion.Truncated}
	err = s.events.InTx(ctx, func(tx EventStore) error {
		checker := &AvailabilityChecker{Store: tx}
		windows := []Window{{Start: in.StartAt, End: in.EndAt}}
		if in.IsRecurring {
			// The template itself is never bookable, so only the
			// generated instances occupy the host's calendar.
			windows = expansion.Windows
		}
		for _, w := range windows {
			ev, err := checker.FindConflict(ctx, hostID, w.Start, w.End, 0)
			if err != nil {
				return err
			}
			if ev != nil {
				return conflictError(ev)
			}
		}

		event := &model.Event{
			Slug:        slug,
			HostID:      hostID,
			CategoryID:  in.CategoryID,
			Title:       strings.TrimSpace(in.Title),
			Description: in.Description,
			StartAt:     in.StartAt,
			EndAt:       in.EndAt,
			Timezone:    in.Timezone,
			IsRecurring: in.IsRecurring,
			Status:      model.StatusDraft,
			Mode:        in.Mode,
			Venue:       in.Venue,
			MeetingURL:  in.MeetingURL,
			IsFree:      in.IsFree,
			PriceCents:  in.PriceCents,
			Capacity:    in.Capacity,
		}
		if in.IsRecurring {
			p := *in.RecurrencePattern
			u := seriesEnd
			event.RecurrencePattern = &p
			event.RecurrenceEndAt = &u
		}
		if err := tx.CreateEvent(ctx, event); err != nil {
			return err
		}
		result.Event = event

		txAlloc := &SlugAllocator{Store: tx}
		for _, w := range expansion.Windows {
			instSlug, err := txAlloc.Allocate(ctx, in.Title, w.Start.Format("20060102"))
			if err != nil {
				return err
			}
			inst := model.Event{
				Slug:          instSlug,
				HostID:        hostID,
				CategoryID:    in.CategoryID,
				Title:         event.Title,
				Description:   in.Description,
				StartAt:       w.Start,
				EndAt:         w.End,
				Timezone:      in.Timezone,
				ParentEventID: &event.ID,
				Status:        model.StatusDraft,
				Mode:          in.Mode,
				Venue:         in.Venue,
				MeetingURL:    in.MeetingURL,
				IsFree:        in.IsFree,
				PriceCents:    in.PriceCents,
				Capacity:      in.Capacity,
			}
			if err := tx.CreateEvent(ctx, &inst); err != nil {
				return err
			}
			result.Instances = append(result.Instances, inst)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit("event.created", hostID, nil, result.Event)
	return result, nil
}

// UpdateEventInput carries a partial update; nil pointers leave the
// field untouched. UpdateFutureInstances opts a template update into
// propagating its content fields to not-yet-started instances.
type UpdateEventInput struct {
	Title                 *string
	Description           *string
	CategoryID            *uint64
	StartAt               *time.Time
	EndAt                 *time.Time
	Timezone              *string
	Mode                  *model.EventMode
	Venue                 *string
	MeetingURL            *string
	IsFree                *bool
	PriceCents            *uint32
	Capacity              *uint32
	Status                *model.EventStatus
	UpdateFutureInstances bool
}

// datesChanged reports whether the payload supplies a start or end
// different from the current values.
func (in *UpdateEventInput) datesChanged(cur *model.Event) bool {
	if in.StartAt != nil && !in.StartAt.Equal(cur.StartAt) {
		return true
	}
	if in.EndAt != nil && !in.EndAt.Equal(cur.EndAt) {
		return true
	}
	return false
}

// fields builds the column/value map of everything the payload sets.
func (in *UpdateEventInput) fields() map[string]any {
	f := in.contentFields()
	if in.StartAt != nil {
		f["start_at"] = in.StartAt.UTC()
	}
	if in.EndAt != nil {
		f["end_at"] = in.EndAt.UTC()
	}
	if in.Status != nil {
		f["status"] = string(*in.Status)
	}
	return f
}

// contentFields builds the column/value map of the propagatable
// fields only: dates, status and recurrence controls never propagate
// to instances.
func (in *UpdateEventInput) contentFields() map[string]any {
	f := map[string]any{}
	if in.Title != nil {
		f["title"] = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		f["description"] = *in.Description
	}
	if in.CategoryID != nil {
		f["category_id"] = *in.CategoryID
	}
	if in.Timezone != nil {
		f["timezone"] = *in.Timezone
	}
	if in.Mode != nil {
		f["mode"] = string(*in.Mode)
	}
	if in.Venue != nil {
		f["venue"] = *in.Venue
	}
	if in.MeetingURL != nil {
		f["meeting_url"] = *in.MeetingURL
	}
	if in.IsFree != nil {
		f["is_free"] = *in.IsFree
	}
	if in.PriceCents != nil {
		f["price_cents"] = *in.PriceCents
	}
	if in.Capacity != nil {
		f["capacity"] = *in.Capacity
	}
	return f
}

// UpdateEvent applies a partial update to an event owned by hostID.
// The mutation policy decides whether the change is allowed for the
// event's series role and booking state; date changes additionally
// re-run the availability check excluding the event itself.
func (s *Scheduler) UpdateEvent(ctx context.Context, eventID, hostID uint64, in UpdateEventInput) (*model.Event, error) {
	now := s.clock.Now()
	cur, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if cur == nil {
		return nil, &NotFoundError{Resource: "event", ID: eventID}
	}
	if cur.HostID != hostID {
		return nil, &ForbiddenError{Reason: "event belongs to another host"}
	}

	datesChanged := in.datesChanged(cur)
	role := cur.Role()

	active := 0
	if datesChanged {
		active, err = s.bookings.CountActiveByEvent(ctx, eventID)
		if err != nil {
			return nil, err
		}
	}
	dec := DecideMutation(MutationRequest{Role: role, ActiveBookings: active, DatesChanged: datesChanged})
	if !dec.Allowed() {
		return nil, dec.Deny
	}

	newStart, newEnd := cur.StartAt, cur.EndAt
	if in.StartAt != nil {
		newStart = in.StartAt.UTC()
	}
	if in.EndAt != nil {
		newEnd = in.EndAt.UTC()
	}
	if datesChanged {
		if err := validateWindow(newStart, newEnd); err != nil {
			return nil, err
		}
		if in.StartAt != nil && !in.StartAt.Equal(cur.StartAt) && !cur.StartAt.After(now) {
			return nil, &ValidationError{Field: "startAt", Reason: "cannot change the start of an event that has already started"}
		}
	}

	// Cross-field rules are checked against the merged result so a
	// partial payload cannot leave the row contradictory.
	mode := cur.Mode
	if in.Mode != nil {
		mode = *in.Mode
	}
	venue := cur.Venue
	if in.Venue != nil {
		venue = *in.Venue
	}
	meetingURL := cur.MeetingURL
	if in.MeetingURL != nil {
		meetingURL = *in.MeetingURL
	}
	isFree := cur.IsFree
	if in.IsFree != nil {
		isFree = *in.IsFree
	}
	price := cur.PriceCents
	if in.PriceCents != nil {
		price = *in.PriceCents
	}
	if err := validateContent(mode, venue, meetingURL, isFree, price); err != nil {
		return nil, err
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if in.Status != nil && !in.Status.Valid() {
		return nil, &ValidationError{Field: "status", Reason: "unknown status"}
	}
	if in.CategoryID != nil && *in.CategoryID != 0 {
		ok, err := s.events.CategoryExists(ctx, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &NotFoundError{Resource: "category", ID: *in.CategoryID}
		}
	}

	fields := in.fields()
	if len(fields) == 0 {
		return nil, &ValidationError{Field: "payload", Reason: "no fields to update"}
	}

	err = s.events.InTx(ctx, func(tx EventStore) error {
		if dec.CheckAvailability {
			checker := &AvailabilityChecker{Store: tx}
			ev, err := checker.FindConflict(ctx, hostID, newStart, newEnd, cur.ID)
			if err != nil {
				return err
			}
			if ev != nil {
				return conflictError(ev)
			}
		}
		if role == model.RoleTemplate && in.UpdateFutureInstances {
			return s.propagateContentUpdate(ctx, tx, cur, in, now)
		}
		return tx.UpdateEventFields(ctx, cur.ID, fields)
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	s.recordAudit("event.updated", hostID, cur, updated)
	return updated, nil
}

// propagateContentUpdate applies a template's content-only update to
// the template row and identically to every instance that has not
// started yet. It runs inside the caller's transaction, so either all
// rows change or none do; past instances are left untouched.
func (s *Scheduler) propagateContentUpdate(ctx context.Context, tx EventStore, template *model.Event, in UpdateEventInput, now time.Time) error {
	if err := tx.UpdateEventFields(ctx, template.ID, in.fields()); err != nil {
		return err
	}
	content := in.contentFields()
	if len(content) == 0 {
		return nil
	}
	instances, err := tx.ListFutureInstances(ctx, template.ID, now)
	if err != nil {
		return err
	}
	for _, inst := range instances {
		if err := tx.UpdateEventFields(ctx, inst.ID, content); err != nil {
			return err
		}
	}
	return nil
}

// DeleteEvent soft-deletes an event owned by hostID. Deleting a
// series template additionally cancels its not-yet-started instances;
// past instances keep their history and their parent reference stays
// valid.
func (s *Scheduler) DeleteEvent(ctx context.Context, eventID, hostID uint64) error {
	cur, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	if cur == nil {
		return &NotFoundError{Resource: "event", ID: eventID}
	}
	if cur.HostID != hostID {
		return &ForbiddenError{Reason: "event belongs to another host"}
	}
	now := s.clock.Now()
	err = s.events.InTx(ctx, func(tx EventStore) error {
		if err := tx.SoftDeleteEvent(ctx, cur.ID, now); err != nil {
			return err
		}
		if cur.Role() == model.RoleTemplate {
			_, err := tx.CancelFutureInstances(ctx, cur.ID, now)
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.recordAudit("event.deleted", hostID, cur, nil)
	return nil
}

// seriesEndBound widens a date-only series end to cover its whole
// final day, so an end date of 2025-06-22 still admits an instance
// starting at 10:00 that day. Bounds that carry a clock time are used
// as-is.
func seriesEndBound(t time.Time) time.Time {
	u := t.UTC()
	if u.Equal(time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)) {
		return u.AddDate(0, 0, 1).Add(-time.Second)
	}
	return u
}

// recordAudit hands the change to the audit collaborator without
// blocking the request. Audit failures never fail the operation.
func (s *Scheduler) recordAudit(action string, actorID uint64, oldEv, newEv *model.Event) {
	if s.audit == nil {
		return
	}
	entry := AuditEntry{
		Action:  action,
		ActorID: actorID,
		Old:     oldEv,
		New:     newEv,
		At:      s.clock.Now(),
	}
	if newEv != nil {
		entry.EventID = newEv.ID
	} else if oldEv != nil {
		entry.EventID = oldEv.ID
	}
	go s.audit.Record(context.Background(), entry)
}
