package middleware

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"

	"dealroom/internal/infrastructure/ratelimit"
	"dealroom/pkg/errors"
	"dealroom/pkg/logger"
	"dealroom/pkg/response"
)

// RateLimit limits requests per client IP under the given action's policy.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()

			allowed, wait := limiter.Allow(ip, action)
			if !allowed {
				logger.Warn("RATE LIMIT: blocked %s from IP %s (retry in %v)", action, ip, wait)
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded"))
			}

			return next(c)
		}
	}
}
