package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/orderdesk/orderdesk/internal/core/domain"
	"github.com/orderdesk/orderdesk/internal/core/ports"
)

const principalKey = "principal"

// AccessTokenQueryParam carries the token for websocket clients, which cannot
// set headers from a browser.
const AccessTokenQueryParam = "access_token"

// Identity resolves the bearer token into a principal and stores it in the
// echo context. A missing or invalid token leaves the request anonymous; the
// operations themselves decide whether identity is required.
func Identity(tokens ports.TokenValidator, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := TokenFromRequest(c.Request(), false)
			if raw == "" {
				return next(c)
			}

			p, err := tokens.ValidateToken(raw)
			if err != nil {
				log.Warn().Err(err).
					Str("path", c.Path()).
					Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
					Msg("ignoring invalid bearer token")
				return next(c)
			}

			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// PrincipalFrom returns the principal set by Identity, or nil.
func PrincipalFrom(c echo.Context) *domain.Principal {
	p, _ := c.Get(principalKey).(*domain.Principal)
	return p
}

// TokenFromRequest extracts a bearer token from the Authorization header and,
// when allowQuery is set, from the access_token query parameter.
func TokenFromRequest(r *http.Request, allowQuery bool) string {
	if h := r.Header.Get(echo.HeaderAuthorization); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if allowQuery {
		return r.URL.Query().Get(AccessTokenQueryParam)
	}
	return ""
}
