package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/events-marketplace/internal/config"
)

// NewRateLimiter returns a fixed-window rate limiter backed by Redis. Each
// client gets cfg.Limit requests per cfg.Window, counted per route. The
// limiter fails open: if Redis is unreachable the request proceeds, since
// losing rate limiting is preferable to refusing all traffic.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	windowSecs := int64(cfg.Window / time.Second)
	if windowSecs < 1 {
		windowSecs = 1
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			now := time.Now().Unix()
			slot := now / windowSecs
			key := fmt.Sprintf("%s:%s:%s:%d", cfg.Prefix, clientID(c), c.Path(), slot)

			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				return next(c)
			}
			if n == 1 {
				// First hit in this window owns the expiry.
				_ = rdb.Expire(ctx, key, time.Duration(windowSecs)*time.Second).Err()
			}

			remaining := int64(cfg.Limit) - n
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if n > int64(cfg.Limit) {
				retry := (slot+1)*windowSecs - now
				c.Response().Header().Set("Retry-After", strconv.FormatInt(retry, 10))
				return c.JSON(http.StatusTooManyRequests, map[string]any{
					"error":       "too_many_requests",
					"retry_after": retry,
				})
			}
			return next(c)
		}
	}
}

// clientID prefers the authenticated user id over the remote address so that
// users behind a shared NAT do not consume each other's quota.
func clientID(c echo.Context) string {
	if v := c.Get("user_id"); v != nil {
		return fmt.Sprint(v)
	}
	if ip := c.RealIP(); ip != "" {
		return ip
	}
	return "anon"
}
