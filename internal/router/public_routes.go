package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/events-marketplace/internal/config"
	"github.com/iliyamo/events-marketplace/internal/handler"
	"github.com/iliyamo/events-marketplace/internal/middleware"
)

// RegisterPublic registers unauthenticated browse endpoints. These are the
// hot read paths, so they sit behind the Redis response cache when one is
// configured.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cacheCfg config.CacheConfig, rdb *redis.Client) {
	g := e.Group("/v1", middleware.NewResponseCache(cacheCfg, rdb))
	g.GET("/categories", p.ListCategories)
	g.GET("/events", p.ListEvents)
	g.GET("/events/:slug", p.GetEvent)
	g.GET("/events/:slug/instances", p.ListEventInstances)
}
