// Public browse endpoints. No authentication; responses are built
// from the same event view the host endpoints use, minus drafts and
// soft-deleted rows which the repository queries already exclude.
package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/events-marketplace/internal/model"
	"github.com/iliyamo/events-marketplace/internal/repository"
)

// PublicHandler aggregates what unauthenticated browsing needs.
type PublicHandler struct {
	Events *repository.EventRepo
}

func NewPublicHandler(events *repository.EventRepo) *PublicHandler {
	if events == nil {
		panic("nil repository passed to NewPublicHandler")
	}
	return &PublicHandler{Events: events}
}

// ListEvents handles GET /v1/events: upcoming published events,
// optionally filtered by a search term (?q=) and category, paginated
// via ?page and ?limit.
func (h *PublicHandler) ListEvents(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	categoryID, _ := strconv.ParseUint(c.QueryParam("category_id"), 10, 64)

	events, err := h.Events.SearchUpcoming(c.Request().Context(),
		c.QueryParam("q"), categoryID, time.Now().UTC(), limit, (page-1)*limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load events"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": newEventViews(events),
		"page":  page,
		"limit": limit,
	})
}

// GetEvent handles GET /v1/events/:slug and returns one published
// event by slug.
func (h *PublicHandler) GetEvent(c echo.Context) error {
	ev, err := h.Events.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load event"})
	}
	if ev.Status != model.StatusPublished {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	}
	return c.JSON(http.StatusOK, newEventView(ev))
}

// ListCategories handles GET /v1/categories.
func (h *PublicHandler) ListCategories(c echo.Context) error {
	cats, err := h.Events.ListCategories(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load categories"})
	}
	items := make([]echo.Map, 0, len(cats))
	for _, cat := range cats {
		items = append(items, echo.Map{"id": cat.ID, "name": cat.Name, "slug": cat.Slug})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListEventInstances handles GET /v1/events/:slug/instances. For a
// series template it returns the generated occurrences; for anything
// else the list is empty.
func (h *PublicHandler) ListEventInstances(c echo.Context) error {
	ev, err := h.Events.GetBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load event"})
	}
	if ev.Role() != model.RoleTemplate {
		return c.JSON(http.StatusOK, echo.Map{"items": []eventView{}})
	}
	instances, err := h.Events.ListInstances(c.Request().Context(), ev.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load instances"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": newEventViews(instances)})
}
