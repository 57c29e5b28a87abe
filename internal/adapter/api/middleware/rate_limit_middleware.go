package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"campusmart/internal/infrastructure/ratelimit"
	"campusmart/pkg/errors"
	"campusmart/pkg/logger"
	"campusmart/pkg/response"
)

const actionRequest = "request"

// RateLimit limits requests per client IP with the shared token buckets.
func RateLimit(limiter *ratelimit.RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if allowed, wait := limiter.Allow(ip, actionRequest); !allowed {
				logger.Warn("RATE LIMIT: blocked request from IP %s (retry in %v)", ip, wait)
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(wait.Round(time.Second).Seconds())+1))
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded"))
			}
			return next(c)
		}
	}
}
