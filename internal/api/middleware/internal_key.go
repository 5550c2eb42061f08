package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
)

// InternalAPIKeyHeader is the header trusted callers authenticate with.
const InternalAPIKeyHeader = "X-Internal-Api-Key"

// InternalAPIKey rejects requests whose X-Internal-Api-Key does not match key.
// An empty key disables the check.
func InternalAPIKey(key string) echo.MiddlewareFunc {
	expected := []byte(key)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(expected) == 0 {
				return next(c)
			}
			got := []byte(c.Request().Header.Get(InternalAPIKeyHeader))
			if subtle.ConstantTimeCompare(got, expected) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid internal api key")
			}
			return next(c)
		}
	}
}
