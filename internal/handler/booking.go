package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/events-marketplace/internal/model"
	"github.com/iliyamo/events-marketplace/internal/repository"
	audit "github.com/iliyamo/events-marketplace/internal/service"
)

// BookingHandler implements the customer booking endpoints. Bookings
// feed straight back into the scheduling core: their active count is
// what blocks date changes on an event.
type BookingHandler struct {
	Events   *repository.EventRepo
	Bookings *repository.BookingRepo
}

func NewBookingHandler(events *repository.EventRepo, bookings *repository.BookingRepo) *BookingHandler {
	if events == nil || bookings == nil {
		panic("nil repository passed to NewBookingHandler")
	}
	return &BookingHandler{Events: events, Bookings: bookings}
}

type bookingView struct {
	ID          uint64    `json:"id"`
	EventID     uint64    `json:"event_id"`
	Qty         uint32    `json:"qty"`
	AmountCents uint32    `json:"amount_cents"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func newBookingView(b *model.Booking) bookingView {
	return bookingView{
		ID:          b.ID,
		EventID:     b.EventID,
		Qty:         b.Qty,
		AmountCents: b.AmountCents,
		Status:      string(b.Status),
		CreatedAt:   b.CreatedAt,
	}
}

// CreateBooking handles POST /v1/bookings.
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		EventID uint64 `json:"event_id"`
		Qty     uint32 `json:"qty"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.EventID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "event_id is required"})
	}
	eventID := body.EventID
	if body.Qty == 0 {
		body.Qty = 1
	}

	ctx := c.Request().Context()
	ev, err := h.Events.GetEvent(ctx, eventID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load event"})
	}
	if ev == nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	// A series template only carries shared content; customers book
	// the generated instances.
	if ev.Role() == model.RoleTemplate {
		return c.JSON(http.StatusConflict, echo.Map{"error": "series template is not bookable, book one of its instances"})
	}
	if ev.Status != model.StatusPublished {
		return c.JSON(http.StatusConflict, echo.Map{"error": "event is not open for booking"})
	}
	if !ev.StartAt.After(time.Now().UTC()) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "event has already started"})
	}
	if ev.Capacity > 0 {
		taken, err := h.Bookings.SumActiveQtyByEvent(ctx, eventID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check capacity"})
		}
		if taken+int(body.Qty) > int(ev.Capacity) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "not enough capacity left"})
		}
	}

	amount := uint32(0)
	if !ev.IsFree {
		amount = ev.PriceCents * body.Qty
	}
	booking := &model.Booking{
		EventID:     eventID,
		UserID:      userID,
		Qty:         body.Qty,
		AmountCents: amount,
		Status:      model.BookingConfirmed,
	}
	if err := h.Bookings.Create(ctx, booking); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create booking"})
	}

	// Fire-and-forget audit notification; failures are logged by the
	// publisher and never fail the booking.
	_ = audit.PublishBookingCreated(ctx, booking, ev)

	return c.JSON(http.StatusCreated, newBookingView(booking))
}

// CancelBooking handles DELETE /v1/bookings/:id.
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Bookings.Cancel(c.Request().Context(), id, userID); err != nil {
		switch {
		case errors.Is(err, repository.ErrBookingNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
		case errors.Is(err, repository.ErrForbidden):
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		case errors.Is(err, repository.ErrConflict):
			return c.JSON(http.StatusConflict, echo.Map{"error": "booking is no longer active"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListMyBookings handles GET /v1/bookings.
func (h *BookingHandler) ListMyBookings(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookings, err := h.Bookings.ListByUser(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load bookings"})
	}
	out := make([]bookingView, 0, len(bookings))
	for i := range bookings {
		out = append(out, newBookingView(&bookings[i]))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
