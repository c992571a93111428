package scheduling

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/events-marketplace/internal/model"
)

// fakeStore is an in-memory EventStore. InTx snapshots the state and
// restores it when fn fails, mirroring a rolled-back transaction.
type fakeStore struct {
	mu         sync.Mutex
	nextID     uint64
	events     map[uint64]model.Event
	categories map[uint64]bool

	// failUpdateID makes UpdateEventFields fail for one event id.
	failUpdateID uint64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:     1,
		events:     map[uint64]model.Event{},
		categories: map[uint64]bool{},
	}
}

func (s *fakeStore) add(e model.Event) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		e.ID = s.nextID
		s.nextID++
	} else if e.ID >= s.nextID {
		s.nextID = e.ID + 1
	}
	s.events[e.ID] = e
	return e.ID
}

func (s *fakeStore) GetEvent(_ context.Context, id uint64) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok || e.DeletedAt != nil {
		return nil, nil
	}
	cp := e
	return &cp, nil
}

func (s *fakeStore) SlugExists(_ context.Context, slug string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.Slug == slug && e.DeletedAt == nil {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeStore) CategoryExists(_ context.Context, id uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.categories[id], nil
}

func (s *fakeStore) CreateEvent(_ context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.nextID
	s.nextID++
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt
	s.events[e.ID] = *e
	return nil
}

func (s *fakeStore) UpdateEventFields(_ context.Context, id uint64, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdateID != 0 && id == s.failUpdateID {
		return errForcedUpdate
	}
	e, ok := s.events[id]
	if !ok || e.DeletedAt != nil {
		return &NotFoundError{Resource: "event", ID: id}
	}
	for k, v := range fields {
		switch k {
		case "title":
			e.Title = v.(string)
		case "description":
			e.Description = v.(string)
		case "category_id":
			e.CategoryID = v.(uint64)
		case "timezone":
			e.Timezone = v.(string)
		case "mode":
			e.Mode = model.EventMode(v.(string))
		case "venue":
			e.Venue = v.(string)
		case "meeting_url":
			e.MeetingURL = v.(string)
		case "is_free":
			e.IsFree = v.(bool)
		case "price_cents":
			e.PriceCents = v.(uint32)
		case "capacity":
			e.Capacity = v.(uint32)
		case "start_at":
			e.StartAt = v.(time.Time)
		case "end_at":
			e.EndAt = v.(time.Time)
		case "status":
			e.Status = model.EventStatus(v.(string))
		}
	}
	e.UpdatedAt = time.Now().UTC()
	s.events[id] = e
	return nil
}

func (s *fakeStore) FindOverlapping(_ context.Context, hostID uint64, start, end time.Time, excludeID uint64) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Event
	for _, e := range s.events {
		if e.HostID != hostID || e.DeletedAt != nil || e.Status.Terminal() {
			continue
		}
		if excludeID != 0 && e.ID == excludeID {
			continue
		}
		if e.StartAt.Before(end) && e.EndAt.After(start) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (s *fakeStore) ListFutureInstances(_ context.Context, parentID uint64, from time.Time) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Event
	for _, e := range s.events {
		if e.ParentEventID == nil || *e.ParentEventID != parentID || e.DeletedAt != nil {
			continue
		}
		if !e.StartAt.Before(from) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartAt.Before(out[j].StartAt) })
	return out, nil
}

func (s *fakeStore) SoftDeleteEvent(_ context.Context, id uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok || e.DeletedAt != nil {
		return &NotFoundError{Resource: "event", ID: id}
	}
	t := at
	e.DeletedAt = &t
	s.events[id] = e
	return nil
}

func (s *fakeStore) CancelFutureInstances(_ context.Context, parentID uint64, from time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, e := range s.events {
		if e.ParentEventID == nil || *e.ParentEventID != parentID || e.DeletedAt != nil {
			continue
		}
		if !e.StartAt.Before(from) && !e.Status.Terminal() {
			e.Status = model.StatusCancelled
			s.events[id] = e
			n++
		}
	}
	return n, nil
}

func (s *fakeStore) InTx(_ context.Context, fn func(tx EventStore) error) error {
	s.mu.Lock()
	snapshot := make(map[uint64]model.Event, len(s.events))
	for id, e := range s.events {
		snapshot[id] = e
	}
	snapID := s.nextID
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.events = snapshot
		s.nextID = snapID
		s.mu.Unlock()
		return err
	}
	return nil
}

var errForcedUpdate = &forcedUpdateError{}

type forcedUpdateError struct{}

func (*forcedUpdateError) Error() string { return "forced update failure" }

// fakeBookings returns canned active-booking counts per event.
type fakeBookings struct {
	counts map[uint64]int
	calls  int
}

func (b *fakeBookings) CountActiveByEvent(_ context.Context, eventID uint64) (int, error) {
	b.calls++
	return b.counts[eventID], nil
}

// fakeAuditor collects entries on a channel so tests can wait for the
// asynchronous record.
type fakeAuditor struct {
	entries chan AuditEntry
}

func newFakeAuditor() *fakeAuditor {
	return &fakeAuditor{entries: make(chan AuditEntry, 16)}
}

func (a *fakeAuditor) Record(_ context.Context, entry AuditEntry) {
	a.entries <- entry
}

func (a *fakeAuditor) wait(t *testing.T) AuditEntry {
	t.Helper()
	select {
	case e := <-a.entries:
		return e
	case <-time.After(2 * time.Second):
		t.Fatalf("no audit entry recorded")
		return AuditEntry{}
	}
}
