package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/events-marketplace/internal/handler"
	"github.com/iliyamo/events-marketplace/internal/middleware"
)

// RegisterHost registers host-scoped event management endpoints under /v1.
// All routes require a valid JWT and the HOST role.
func RegisterHost(e *echo.Echo, h *handler.HostHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("HOST"),
	)
	// Event detail routes are keyed by slug on the public side, so host
	// mutations live under /host to keep the :id param unambiguous.
	g.POST("/host/events", h.CreateEvent)
	g.PATCH("/host/events/:id", h.UpdateEvent)
	g.DELETE("/host/events/:id", h.DeleteEvent)
	g.GET("/host/events", h.ListMyEvents)
}
