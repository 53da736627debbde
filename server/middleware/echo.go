package middleware

import (
	"github.com/labstack/echo/v4"
)

// KeyFunc extracts the rate limit key from a request.
type KeyFunc func(c echo.Context) string

// RateLimit rejects requests whose key has exhausted its bucket by calling
// onReject. Requests with an empty key pass through.
func RateLimit(rl *RateLimiter, key KeyFunc, onReject func(c echo.Context) error) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			k := key(c)
			if k != "" && !rl.Allow(k) {
				return onReject(c)
			}
			return next(c)
		}
	}
}
