package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/events-marketplace/internal/handler"
	"github.com/iliyamo/events-marketplace/internal/middleware"
)

// RegisterCustomer registers customer-scoped booking endpoints under /v1.
// All routes require a valid JWT and the CUSTOMER role.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER"),
	)
	g.POST("/bookings", h.CreateBooking)
	g.DELETE("/bookings/:id", h.CancelBooking)
	g.GET("/bookings", h.ListMyBookings)
}
