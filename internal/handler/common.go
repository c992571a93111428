package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/events-marketplace/internal/model"
	"github.com/iliyamo/events-marketplace/internal/scheduling"
)

// getUserID extracts the user_id placed in context by the JWT
// middleware and converts it to uint64.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// eventView is the JSON shape events are rendered with. Soft-delete
// and host-internal fields stay out of responses.
type eventView struct {
	ID                uint64     `json:"id"`
	Slug              string     `json:"slug"`
	HostID            uint64     `json:"host_id"`
	CategoryID        uint64     `json:"category_id,omitempty"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	StartAt           time.Time  `json:"start_at"`
	EndAt             time.Time  `json:"end_at"`
	Timezone          string     `json:"timezone,omitempty"`
	IsRecurring       bool       `json:"is_recurring"`
	RecurrencePattern *string    `json:"recurrence_pattern,omitempty"`
	RecurrenceEndAt   *time.Time `json:"recurrence_end_date,omitempty"`
	ParentEventID     *uint64    `json:"parent_event_id,omitempty"`
	Status            string     `json:"status"`
	Mode              string     `json:"mode"`
	Venue             string     `json:"venue,omitempty"`
	MeetingURL        string     `json:"meeting_url,omitempty"`
	IsFree            bool       `json:"is_free"`
	PriceCents        uint32     `json:"price_cents"`
	Capacity          uint32     `json:"capacity"`
}

func newEventView(e *model.Event) eventView {
	v := eventView{
		ID:            e.ID,
		Slug:          e.Slug,
		HostID:        e.HostID,
		CategoryID:    e.CategoryID,
		Title:         e.Title,
		Description:   e.Description,
		StartAt:       e.StartAt,
		EndAt:         e.EndAt,
		Timezone:      e.Timezone,
		IsRecurring:   e.IsRecurring,
		ParentEventID: e.ParentEventID,
		Status:        string(e.Status),
		Mode:          string(e.Mode),
		Venue:         e.Venue,
		MeetingURL:    e.MeetingURL,
		IsFree:        e.IsFree,
		PriceCents:    e.PriceCents,
		Capacity:      e.Capacity,
	}
	if e.RecurrencePattern != nil {
		p := string(*e.RecurrencePattern)
		v.RecurrencePattern = &p
	}
	if e.RecurrenceEndAt != nil {
		t := *e.RecurrenceEndAt
		v.RecurrenceEndAt = &t
	}
	return v
}

func newEventViews(events []model.Event) []eventView {
	out := make([]eventView, 0, len(events))
	for i := range events {
		out = append(out, newEventView(&events[i]))
	}
	return out
}

// writeCoreError translates the scheduling core's typed errors into
// HTTP responses with enough context for the caller to act.
func writeCoreError(c echo.Context, err error) error {
	var (
		ve *scheduling.ValidationError
		nf *scheduling.NotFoundError
		fb *scheduling.ForbiddenError
		cf *scheduling.ConflictError
		io *scheduling.InvalidOperationError
	)
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error":  "validation failed",
			"field":  ve.Field,
			"reason": ve.Reason,
		})
	case errors.As(err, &nf):
		return c.JSON(http.StatusNotFound, echo.Map{"error": nf.Error()})
	case errors.As(err, &fb):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.As(err, &cf):
		body := echo.Map{"error": cf.Reason}
		if cf.EventID != 0 {
			body["conflicting_event"] = echo.Map{
				"id":       cf.EventID,
				"title":    cf.EventTitle,
				"start_at": cf.StartAt,
				"end_at":   cf.EndAt,
			}
		}
		if cf.ActiveBookings > 0 {
			body["active_bookings"] = cf.ActiveBookings
		}
		return c.JSON(http.StatusConflict, body)
	case errors.As(err, &io):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": io.Reason})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
