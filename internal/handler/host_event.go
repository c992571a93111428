// Host-facing event management. These handlers bind and parse the
// HTTP payloads, then delegate every domain decision — slug
// uniqueness, series expansion, availability, mutation rules — to the
// scheduling core and translate its typed errors back into responses.
package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/events-marketplace/internal/model"
	"github.com/iliyamo/events-marketplace/internal/repository"
	"github.com/iliyamo/events-marketplace/internal/scheduling"
)

// HostHandler bundles what the host endpoints need.
type HostHandler struct {
	Core   *scheduling.Scheduler
	Events *repository.EventRepo
}

func NewHostHandler(core *scheduling.Scheduler, events *repository.EventRepo) *HostHandler {
	if core == nil || events == nil {
		panic("nil dependency passed to NewHostHandler")
	}
	return &HostHandler{Core: core, Events: events}
}

type createEventReq struct {
	Title             string `json:"title"`
	Description       string `json:"description"`
	CategoryID        uint64 `json:"category_id"`
	StartAt           string `json:"start_at"`
	EndAt             string `json:"end_at"`
	Timezone          string `json:"timezone"`
	Mode              string `json:"mode"`
	Venue             string `json:"venue"`
	MeetingURL        string `json:"meeting_url"`
	IsFree            *bool  `json:"is_free"`
	PriceCents        uint32 `json:"price_cents"`
	Capacity          uint32 `json:"capacity"`
	IsRecurring       bool   `json:"is_recurring"`
	RecurrencePattern string `json:"recurrence_pattern"`
	RecurrenceEndDate string `json:"recurrence_end_date"`
}

// parseEventTime accepts RFC3339 or a bare date.
func parseEventTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// CreateEvent handles POST /v1/host/events. For recurring events the
// response carries the generated instances and a truncated flag when
// the series hit the expansion cap.
func (h *HostHandler) CreateEvent(c echo.Context) error {
	hostID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body createEventReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if strings.TrimSpace(body.StartAt) == "" || strings.TrimSpace(body.EndAt) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "start_at and end_at are required"})
	}
	startAt, err := parseEventTime(body.StartAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_at format"})
	}
	endAt, err := parseEventTime(body.EndAt)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_at format"})
	}

	in := scheduling.CreateEventInput{
		Title:       body.Title,
		Description: body.Description,
		CategoryID:  body.CategoryID,
		StartAt:     startAt,
		EndAt:       endAt,
		Timezone:    body.Timezone,
		Mode:        model.EventMode(strings.ToUpper(strings.TrimSpace(body.Mode))),
		Venue:       strings.TrimSpace(body.Venue),
		MeetingURL:  strings.TrimSpace(body.MeetingURL),
		IsFree:      true,
		PriceCents:  body.PriceCents,
		Capacity:    body.Capacity,
		IsRecurring: body.IsRecurring,
	}
	if body.IsFree != nil {
		in.IsFree = *body.IsFree
	}
	if body.IsRecurring {
		if p := strings.ToUpper(strings.TrimSpace(body.RecurrencePattern)); p != "" {
			pat := model.RecurrencePattern(p)
			in.RecurrencePattern = &pat
		}
		if s := strings.TrimSpace(body.RecurrenceEndDate); s != "" {
			until, err := parseEventTime(s)
			if err != nil {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid recurrence_end_date format"})
			}
			in.RecurrenceEndAt = &until
		}
	}

	res, err := h.Core.CreateEvent(c.Request().Context(), hostID, in)
	if err != nil {
		return writeCoreError(c, err)
	}
	resp := echo.Map{
		"event":     newEventView(res.Event),
		"truncated": res.Truncated,
	}
	if res.Event.IsRecurring {
		resp["instances"] = newEventViews(res.Instances)
		resp["instance_count"] = len(res.Instances)
	}
	return c.JSON(http.StatusCreated, resp)
}

type updateEventReq struct {
	Title                 *string `json:"title"`
	Description           *string `json:"description"`
	CategoryID            *uint64 `json:"category_id"`
	StartAt               *string `json:"start_at"`
	EndAt                 *string `json:"end_at"`
	Timezone              *string `json:"timezone"`
	Mode                  *string `json:"mode"`
	Venue                 *string `json:"venue"`
	MeetingURL            *string `json:"meeting_url"`
	IsFree                *bool   `json:"is_free"`
	PriceCents            *uint32 `json:"price_cents"`
	Capacity              *uint32 `json:"capacity"`
	Status                *string `json:"status"`
	UpdateFutureInstances bool    `json:"update_future_instances"`
}

// UpdateEvent handles PATCH /v1/host/events/:id. Omitted fields keep
// their values; update_future_instances opts a template's content
// change into propagation across its future instances.
func (h *HostHandler) UpdateEvent(c echo.Context) error {
	hostID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body updateEventReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	in := scheduling.UpdateEventInput{
		Title:                 body.Title,
		Description:           body.Description,
		CategoryID:            body.CategoryID,
		Timezone:              body.Timezone,
		Venue:                 body.Venue,
		MeetingURL:            body.MeetingURL,
		IsFree:                body.IsFree,
		PriceCents:            body.PriceCents,
		Capacity:              body.Capacity,
		UpdateFutureInstances: body.UpdateFutureInstances,
	}
	if body.StartAt != nil {
		t, err := parseEventTime(*body.StartAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid start_at format"})
		}
		in.StartAt = &t
	}
	if body.EndAt != nil {
		t, err := parseEventTime(*body.EndAt)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid end_at format"})
		}
		in.EndAt = &t
	}
	if body.Mode != nil {
		m := model.EventMode(strings.ToUpper(strings.TrimSpace(*body.Mode)))
		in.Mode = &m
	}
	if body.Status != nil {
		s := model.EventStatus(strings.ToUpper(strings.TrimSpace(*body.Status)))
		in.Status = &s
	}

	updated, err := h.Core.UpdateEvent(c.Request().Context(), id, hostID, in)
	if err != nil {
		return writeCoreError(c, err)
	}
	return c.JSON(http.StatusOK, newEventView(updated))
}

// DeleteEvent handles DELETE /v1/host/events/:id. Deleting a series
// template also cancels its future instances.
func (h *HostHandler) DeleteEvent(c echo.Context) error {
	hostID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Core.DeleteEvent(c.Request().Context(), id, hostID); err != nil {
		return writeCoreError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListMyEvents handles GET /v1/host/events and returns everything the
// host owns, templates and instances included.
func (h *HostHandler) ListMyEvents(c echo.Context) error {
	hostID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	events, err := h.Events.ListByHost(c.Request().Context(), hostID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load events"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": newEventViews(events)})
}
