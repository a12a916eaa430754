package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/arvela/restaurant-rating-ledger/internal/config"
)

// RateLimit returns a fixed-window request limiter backed by Redis.
// Counters are keyed by client IP and matched route, so one noisy
// client cannot exhaust another's budget. When Redis is unavailable or
// the limiter is disabled, requests pass through unthrottled; the
// limiter is protection, not a correctness requirement.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}

	// INCR + EXPIRE stay atomic inside a single script so that the
	// first request of a window always sets the TTL.
	windowScript := redis.NewScript(`
        local key = KEYS[1]
        local limit = tonumber(ARGV[1])
        local ttl_seconds = tonumber(ARGV[2])

        local count = redis.call('INCR', key)
        if count == 1 then
            redis.call('EXPIRE', key, ttl_seconds)
        end

        local remaining = limit - count
        if remaining < 0 then remaining = 0 end
        local allowed = 0
        if count <= limit then allowed = 1 end
        return { allowed, remaining, redis.call('TTL', key) }
    `)

	winSec := int64(cfg.Window / time.Second)
	if winSec < 1 {
		winSec = 1 // a sub-second window rounds up to one bucket per second
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			window := time.Now().Unix() / winSec
			key := fmt.Sprintf("%s:%s:%s:%d", cfg.Prefix, c.RealIP(), c.Path(), window)

			vals, err := windowScript.Run(c.Request().Context(), rdb,
				[]string{key}, cfg.Limit, int64(cfg.TTL/time.Second)).Result()
			if err != nil {
				// Redis trouble must not take the API down.
				return next(c)
			}

			arr, ok := vals.([]interface{})
			if !ok || len(arr) != 3 {
				return next(c)
			}
			allowed := asInt64(arr[0]) == 1
			remaining := asInt64(arr[1])
			retryAfter := asInt64(arr[2])

			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if !allowed {
				if retryAfter < 0 {
					retryAfter = int64(cfg.Window / time.Second)
				}
				c.Response().Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "too_many_requests",
					"retry_after": retryAfter,
				})
			}
			return next(c)
		}
	}
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}
