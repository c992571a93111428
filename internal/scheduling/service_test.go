package scheduling

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/events-marketplace/internal/model"
)

func newTestScheduler(store *fakeStore, bookings *fakeBookings, audit Auditor, now time.Time) *Scheduler {
	if bookings == nil {
		bookings = &fakeBookings{counts: map[uint64]int{}}
	}
	return NewScheduler(store, bookings, audit, FixedClock{T: now})
}

func virtualInput(title string, start, end time.Time) CreateEventInput {
	return CreateEventInput{
		Title:      title,
		StartAt:    start,
		EndAt:      end,
		Timezone:   "UTC",
		Mode:       model.ModeVirtual,
		MeetingURL: "https://meet.example.com/room",
		IsFree:     true,
		Capacity:   50,
	}
}

func TestCreateStandaloneEvent(t *testing.T) {
	store := newFakeStore()
	audit := newFakeAuditor()
	now := date(2025, 6, 1, 0, 0)
	s := newTestScheduler(store, nil, audit, now)

	res, err := s.CreateEvent(context.Background(), 1, virtualInput("Yoga Workshop", date(2025, 6, 8, 10, 0), date(2025, 6, 8, 12, 0)))
	if err != nil {
		t.Fatal(err)
	}
	ev := res.Event
	if ev.ID == 0 {
		t.Fatal("event id not assigned")
	}
	if ev.Slug != "yoga-workshop" {
		t.Fatalf("slug = %q", ev.Slug)
	}
	if ev.Status != model.StatusDraft {
		t.Fatalf("status = %q, want DRAFT", ev.Status)
	}
	if ev.Role() != model.RoleStandalone {
		t.Fatalf("role = %v, want standalone", ev.Role())
	}
	if len(res.Instances) != 0 || res.Truncated {
		t.Fatalf("standalone event got instances: %+v", res)
	}

	entry := audit.wait(t)
	if entry.Action != "event.created" || entry.EventID != ev.ID || entry.ActorID != 1 {
		t.Fatalf("audit entry = %+v", entry)
	}
	if entry.Old != nil || entry.New == nil {
		t.Fatalf("audit snapshots = old %v new %v", entry.Old, entry.New)
	}
}

func TestCreateEventValidation(t *testing.T) {
	store := newFakeStore()
	now := date(2025, 6, 1, 0, 0)
	s := newTestScheduler(store, nil, nil, now)
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateEventInput
	}{
		{"empty title", virtualInput("   ", date(2025, 6, 8, 10, 0), date(2025, 6, 8, 12, 0))},
		{"end before start", virtualInput("X", date(2025, 6, 8, 12, 0), date(2025, 6, 8, 10, 0))},
		{"start in the past", virtualInput("X", date(2025, 5, 1, 10, 0), date(2025, 5, 1, 12, 0))},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := s.CreateEvent(ctx, 1, c.in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
		})
	}

	t.Run("unknown category", func(t *testing.T) {
		in := virtualInput("X", date(2025, 6, 8, 10, 0), date(2025, 6, 8, 12, 0))
		in.CategoryID = 42
		_, err := s.CreateEvent(ctx, 1, in)
		var nerr *NotFoundError
		if !errors.As(err, &nerr) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})
}

func TestCreateEventConflict(t *testing.T) {
	store := newFakeStore()
	existingID := seedEvent(store, 1, "Event A", date(2025, 6, 8, 10, 0), date(2025, 6, 8, 12, 0))
	s := newTestScheduler(store, nil, nil, date(2025, 6, 1, 0, 0))

	_, err := s.CreateEvent(context.Background(), 1, virtualInput("Event B", date(2025, 6, 8, 11, 0), date(2025, 6, 8, 13, 0)))
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if cerr.EventID != existingID || cerr.EventTitle != "Event A" {
		t.Fatalf("conflict does not reference the blocking event: %+v", cerr)
	}
	// The failed transaction must not leave the new event behind.
	if ok, _ := store.SlugExists(context.Background(), "event-b"); ok {
		t.Fatal("conflicting event was persisted")
	}
}

func TestCreateRecurringSeries(t *testing.T) {
	store := newFakeStore()
	s := newTestScheduler(store, nil, nil, date(2025, 6, 1, 0, 0))

	in := virtualInput("Weekly Standup", date(2025, 6, 8, 10, 0), date(2025, 6, 8, 12, 0))
	in.IsRecurring = true
	pattern := model.RecurWeekly
	in.RecurrencePattern = &pattern
	// Date-only bound: the instance starting 10:00 on the final day
	// still belongs to the series.
	endDate := date(2025, 6, 22, 0, 0)
	in.RecurrenceEndAt = &endDate

	res, err := s.CreateEvent(context.Background(), 1, in)
	if err != nil {
		t.Fatal(err)
	}
	if res.Event.Role() != model.RoleTemplate {
		t.Fatalf("template role = %v", res.Event.Role())
	}
	if res.Truncated {
		t.Fatal("unexpected truncation")
	}
	if len(res.Instances) != 2 {
		t.Fatalf("got %d instances, want 2", len(res.Instances))
	}
	wantStarts := []time.Time{date(2025, 6, 15, 10, 0), date(2025, 6, 22, 10, 0)}
	for i, inst := range res.Instances {
		if inst.ParentEventID == nil || *inst.ParentEventID != res.Event.ID {
			t.Fatalf("instance %d parent = %v", i, inst.ParentEventID)
		}
		if inst.Role() != model.RoleInstance {
			t.Fatalf("instance %d role = %v", i, inst.Role())
		}
		if !inst.StartAt.Equal(wantStarts[i]) {
			t.Fatalf("instance %d starts %v, want %v", i, inst.StartAt, wantStarts[i])
		}
		if !strings.HasPrefix(inst.Slug, "weekly-standup-") {
			t.Fatalf("instance %d slug = %q", i, inst.Slug)
		}
	}
	if res.Instances[0].Slug != "weekly-standup-20250615" {
		t.Fatalf("instance slug = %q", res.Instances[0].Slug)
	}
}

func TestCreateRecurringSeriesMissingPattern(t *testing.T) {
	store := newFakeStore()
	s := newTestScheduler(store, nil, nil, date(2025, 6, 1, 0, 0))

	in := virtualInput("Weekly Standup", date(2025, 6, 8, 10, 0), date(2025, 6, 8, 12, 0))
	in.IsRecurring = true
	_, err := s.CreateEvent(context.Background(), 1, in)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateSeriesSurfacesTruncation(t *testing.T) {
	store := newFakeStore()
	s := newTestScheduler(store, nil, nil, date(2025, 1, 1, 0, 0))

	in := virtualInput("Daily Check-in", date(2025, 1, 2, 9, 0), date(2025, 1, 2, 9, 30))
	in.IsRecurring = true
	pattern := model.RecurDaily
	in.RecurrencePattern = &pattern
	end := in.StartAt.AddDate(2, 0, 0)
	in.RecurrenceEndAt = &end

	res, err := s.CreateEvent(context.Background(), 1, in)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Truncated {
		t.Fatal("truncation not surfaced")
	}
	if len(res.Instances) != MaxSeriesInstances {
		t.Fatalf("got %d instances, want %d", len(res.Instances), MaxSeriesInstances)
	}
}

func TestUpdateEventNotFoundAndForbidden(t *testing.T) {
	store := newFakeStore()
	id := seedEvent(store, 1, "Mine", date(2025, 6, 8, 10, 0), date(2025, 6, 8, 12, 0))
	s := newTestScheduler(store, nil, nil, date(2025, 6, 1, 0, 0))
	ctx := context.Background()
	title := "New Title"

	_, err := s.UpdateEvent(ctx, 999, 1, UpdateEventInput{Title: &title})
	var nerr *NotFoundError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	_, err = s.UpdateEvent(ctx, id, 2, UpdateEventInput{Title: &title})
	var ferr *ForbiddenError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected ForbiddenError, got %v", err)
	}
}

func TestUpdateDatesBlockedByActiveBookings(t *testing.T) {
	store := newFakeStore()
	id := seedEvent(store, 1, "Dinner", date(2025, 6, 8, 18, 0), date(2025, 6, 8, 21, 0))
	bookings := &fakeBookings{counts: map[uint64]int{id: 1}}
	s := newTestScheduler(store, bookings, nil, date(2025, 6, 1, 0, 0))
	ctx := context.Background()

	newStart := date(2025, 6, 9, 18, 0)
	_, err := s.UpdateEvent(ctx, id, 1, UpdateEventInput{StartAt: &newStart})
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if cerr.ActiveBookings != 1 {
		t.Fatalf("ActiveBookings = %d, want 1", cerr.ActiveBookings)
	}

	// Once the booking is gone the same change goes through.
	bookings.counts[id] = 0
	newEnd := date(2025, 6, 9, 21, 0)
	updated, err := s.UpdateEvent(ctx, id, 1, UpdateEventInput{StartAt: &newStart, EndAt: &newEnd})
	if err != nil {
		t.Fatal(err)
	}
	if !updated.StartAt.Equal(newStart) || !updated.EndAt.Equal(newEnd) {
		t.Fatalf("dates not applied: %v..%v", updated.StartAt, updated.EndAt)
	}
}

func TestUpdateContentIgnoresBookings(t *testing.T) {
	store := newFakeStore()
	id := seedEvent(store, 1, "Dinner", date(2025, 6, 8, 18, 0), date(2025, 6, 8, 21, 0))
	bookings := &fakeBookings{counts: map[uint64]int{id: 12}}
	s := newTestScheduler(store, bookings, nil, date(2025, 6, 1, 0, 0))

	desc := "now with live music"
	updated, err := s.UpdateEvent(context.Background(), id, 1, UpdateEventInput{Description: &desc})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Description != desc {
		t.Fatalf("description = %q", updated.Description)
	}
	if bookings.calls != 0 {
		t.Fatalf("booking count consulted %d times for a content-only update", bookings.calls)
	}
}

func TestUpdateDatesChecksAvailability(t *testing.T) {
	store := newFakeStore()
	id := seedEvent(store, 1, "Movable", date(2025, 6, 8, 10, 0), date(2025, 6, 8, 12, 0))
	otherID := seedEvent(store, 1, "Fixture", date(2025, 6, 9, 10, 0), date(2025, 6, 9, 12, 0))
	s := newTestScheduler(store, nil, nil, date(2025, 6, 1, 0, 0))
	ctx := context.Background()

	newStart := date(2025, 6, 9, 11, 0)
	newEnd := date(2025, 6, 9, 13, 0)
	_, err := s.UpdateEvent(ctx, id, 1, UpdateEventInput{StartAt: &newStart, EndAt: &newEnd})
	var cerr *ConflictError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if cerr.EventID != otherID {
		t.Fatalf("conflict references event %d, want %d", cerr.EventID, otherID)
	}

	// Moving within free time succeeds and does not conflict with the
	// event's own old window.
	newStart = date(2025, 6, 8, 11, 0)
	newEnd = date(2025, 6, 8, 13, 0)
	if _, err := s.UpdateEvent(ctx, id, 1, UpdateEventInput{StartAt: &newStart, EndAt: &newEnd}); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateStartImmutableOnceStarted(t *testing.T) {
	store := newFakeStore()
	id := seedEvent(store, 1, "Running", date(2025, 6, 8, 10, 0), date(2025, 6, 8, 12, 0))
	// Clock inside the event window.
	s := newTestScheduler(store, nil, nil, date(2025, 6, 8, 11, 0))

	newStart := date(2025, 6, 9, 10, 0)
	newEnd := date(2025, 6, 9, 12, 0)
	_, err := s.UpdateEvent(context.Background(), id, 1, UpdateEventInput{StartAt: &newStart, EndAt: &newEnd})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "startAt" {
		t.Fatalf("field = %q", verr.Field)
	}
}

func TestUpdateTemplateDatesRejected(t *testing.T) {
	store := newFakeStore()
	pattern := model.RecurWeekly
	until := date(2025, 7, 1, 0, 0)
	templateID := store.add(model.Event{
		HostID:            1,
		Title:             "Series",
		Slug:              "series",
		StartAt:           date(2025, 6, 8, 10, 0),
		EndAt:             date(2025, 6, 8, 12, 0),
		IsRecurring:       true,
		RecurrencePattern: &pattern,
		RecurrenceEndAt:   &until,
		Status:            model.StatusPublished,
		Mode:              model.ModeVirtual,
		MeetingURL:        "https://meet.example.com/x",
	})
	s := newTestScheduler(store, nil, nil, date(2025, 6, 1, 0, 0))

	newStart := date(2025, 6, 9, 10, 0)
	_, err := s.UpdateEvent(context.Background(), templateID, 1, UpdateEventInput{StartAt: &newStart})
	var ierr *InvalidOperationError
	if !errors.As(err, &ierr) {
		t.Fatalf("expected InvalidOperationError, got %v", err)
	}
}

// seedSeries creates a template with one past and two future instances
// around the given clock time.
func seedSeries(store *fakeStore, now time.Time) (templateID uint64, instanceIDs []uint64) {
	pattern := model.RecurWeekly
	until := now.AddDate(0, 2, 0)
	templateID = store.add(model.Event{
		HostID:            1,
		Title:             "Series",
		Slug:              "series",
		StartAt:           now.AddDate(0, 0, -7),
		EndAt:             now.AddDate(0, 0, -7).Add(2 * time.Hour),
		IsRecurring:       true,
		RecurrencePattern: &pattern,
		RecurrenceEndAt:   &until,
		Status:            model.StatusPublished,
		Mode:              model.ModeVirtual,
		MeetingURL:        "https://meet.example.com/x",
		IsFree:            true,
	})
	starts := []time.Time{now.AddDate(0, 0, -3), now.AddDate(0, 0, 4), now.AddDate(0, 0, 11)}
	for _, st := range starts {
		parent := templateID
		id := store.add(model.Event{
			HostID:        1,
			Title:         "Series",
			Slug:          "series-" + st.Format("20060102"),
			StartAt:       st,
			EndAt:         st.Add(2 * time.Hour),
			ParentEventID: &parent,
			Status:        model.StatusPublished,
			Mode:          model.ModeVirtual,
			MeetingURL:    "https://meet.example.com/x",
			IsFree:        true,
		})
		instanceIDs = append(instanceIDs, id)
	}
	return templateID, instanceIDs
}

func TestTemplateUpdatePropagatesToFutureInstances(t *testing.T) {
	store := newFakeStore()
	now := date(2025, 6, 8, 0, 0)
	templateID, instanceIDs := seedSeries(store, now)
	s := newTestScheduler(store, nil, nil, now)
	ctx := context.Background()

	title := "Series v2"
	updated, err := s.UpdateEvent(ctx, templateID, 1, UpdateEventInput{Title: &title, UpdateFutureInstances: true})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Title != title {
		t.Fatalf("template title = %q", updated.Title)
	}

	past, _ := store.GetEvent(ctx, instanceIDs[0])
	if past.Title != "Series" {
		t.Fatalf("past instance title changed to %q", past.Title)
	}
	for _, id := range instanceIDs[1:] {
		inst, _ := store.GetEvent(ctx, id)
		if inst.Title != title {
			t.Fatalf("future instance %d title = %q", id, inst.Title)
		}
		// Propagation never moves instance dates.
		if inst.StartAt.Equal(updated.StartAt) {
			t.Fatalf("instance %d start was overwritten", id)
		}
	}
}

func TestTemplateUpdateWithoutOptOutLeavesInstances(t *testing.T) {
	store := newFakeStore()
	now := date(2025, 6, 8, 0, 0)
	templateID, instanceIDs := seedSeries(store, now)
	s := newTestScheduler(store, nil, nil, now)
	ctx := context.Background()

	title := "Series v2"
	if _, err := s.UpdateEvent(ctx, templateID, 1, UpdateEventInput{Title: &title}); err != nil {
		t.Fatal(err)
	}
	for _, id := range instanceIDs {
		inst, _ := store.GetEvent(ctx, id)
		if inst.Title != "Series" {
			t.Fatalf("instance %d changed without propagation opt-in", id)
		}
	}
}

func TestPropagationRollsBackAtomically(t *testing.T) {
	store := newFakeStore()
	now := date(2025, 6, 8, 0, 0)
	templateID, instanceIDs := seedSeries(store, now)
	// Fail on the last future instance, after the template and the
	// first future instance have already been written.
	store.failUpdateID = instanceIDs[2]
	s := newTestScheduler(store, nil, nil, now)
	ctx := context.Background()

	title := "Series v2"
	_, err := s.UpdateEvent(ctx, templateID, 1, UpdateEventInput{Title: &title, UpdateFutureInstances: true})
	if err == nil {
		t.Fatal("expected propagation failure")
	}

	tpl, _ := store.GetEvent(ctx, templateID)
	if tpl.Title != "Series" {
		t.Fatalf("template title = %q after rollback", tpl.Title)
	}
	for _, id := range instanceIDs {
		inst, _ := store.GetEvent(ctx, id)
		if inst.Title != "Series" {
			t.Fatalf("instance %d title = %q after rollback", id, inst.Title)
		}
	}
}

func TestDeleteEvent(t *testing.T) {
	store := newFakeStore()
	id := seedEvent(store, 1, "Gone", date(2025, 6, 8, 10, 0), date(2025, 6, 8, 12, 0))
	audit := newFakeAuditor()
	s := newTestScheduler(store, nil, audit, date(2025, 6, 1, 0, 0))
	ctx := context.Background()

	if err := s.DeleteEvent(ctx, id, 2); err == nil {
		t.Fatal("foreign host allowed to delete")
	}
	if err := s.DeleteEvent(ctx, id, 1); err != nil {
		t.Fatal(err)
	}
	if ev, _ := store.GetEvent(ctx, id); ev != nil {
		t.Fatal("event still visible after delete")
	}
	entry := audit.wait(t)
	if entry.Action != "event.deleted" || entry.EventID != id {
		t.Fatalf("audit entry = %+v", entry)
	}
	// Deleting again reports not found.
	var nerr *NotFoundError
	if err := s.DeleteEvent(ctx, id, 1); !errors.As(err, &nerr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestDeleteTemplateCancelsFutureInstances(t *testing.T) {
	store := newFakeStore()
	now := date(2025, 6, 8, 0, 0)
	templateID, instanceIDs := seedSeries(store, now)
	s := newTestScheduler(store, nil, nil, now)
	ctx := context.Background()

	if err := s.DeleteEvent(ctx, templateID, 1); err != nil {
		t.Fatal(err)
	}
	if tpl, _ := store.GetEvent(ctx, templateID); tpl != nil {
		t.Fatal("template still visible after delete")
	}
	past, _ := store.GetEvent(ctx, instanceIDs[0])
	if past.Status != model.StatusPublished {
		t.Fatalf("past instance status = %q, want untouched", past.Status)
	}
	for _, id := range instanceIDs[1:] {
		inst, _ := store.GetEvent(ctx, id)
		if inst.Status != model.StatusCancelled {
			t.Fatalf("future instance %d status = %q, want CANCELLED", id, inst.Status)
		}
	}
}

func TestSeriesEndBound(t *testing.T) {
	dateOnly := date(2025, 6, 22, 0, 0)
	widened := seriesEndBound(dateOnly)
	if !widened.Equal(time.Date(2025, 6, 22, 23, 59, 59, 0, time.UTC)) {
		t.Fatalf("widened bound = %v", widened)
	}

	timed := date(2025, 6, 22, 15, 30)
	if got := seriesEndBound(timed); !got.Equal(timed) {
		t.Fatalf("timed bound changed to %v", got)
	}
}
