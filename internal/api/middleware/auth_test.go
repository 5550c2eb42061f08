package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/orderdesk/orderdesk/internal/core/domain"
)

type stubValidator struct {
	tokens map[string]*domain.Principal
}

func (s stubValidator) ValidateToken(raw string) (*domain.Principal, error) {
	if p, ok := s.tokens[raw]; ok {
		return p, nil
	}
	return nil, errors.New("bad token: " + domain.ErrInvalidToken.Error())
}

var validator = stubValidator{tokens: map[string]*domain.Principal{
	"good": {UserID: "user-001", Username: "user", Role: domain.RoleUser},
}}

func runIdentity(t *testing.T, header string) (*domain.Principal, int) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *domain.Principal
	called := false
	handler := Identity(validator, zerolog.Nop())(func(c echo.Context) error {
		called = true
		seen = PrincipalFrom(c)
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	return seen, rec.Code
}

func TestIdentity_ValidToken(t *testing.T) {
	p, code := runIdentity(t, "Bearer good")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if p == nil || p.UserID != "user-001" || p.Role != domain.RoleUser {
		t.Fatalf("principal not set: %+v", p)
	}
}

func TestIdentity_MissingHeaderIsAnonymous(t *testing.T) {
	if p, _ := runIdentity(t, ""); p != nil {
		t.Fatalf("expected anonymous, got %+v", p)
	}
}

func TestIdentity_InvalidTokenIsAnonymous(t *testing.T) {
	if p, _ := runIdentity(t, "Bearer forged"); p != nil {
		t.Fatalf("expected anonymous for invalid token, got %+v", p)
	}
}

func TestIdentity_InvalidHeaderFormatIsAnonymous(t *testing.T) {
	if p, _ := runIdentity(t, "Token good"); p != nil {
		t.Fatalf("expected anonymous for non-bearer scheme, got %+v", p)
	}
}

func TestTokenFromRequest_QueryParam(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/hubs/notifications?access_token=abc", nil)

	if got := TokenFromRequest(req, true); got != "abc" {
		t.Fatalf("expected token from query, got %q", got)
	}
	if got := TokenFromRequest(req, false); got != "" {
		t.Fatalf("query token must be ignored when not allowed, got %q", got)
	}

	req.Header.Set("Authorization", "Bearer header-wins")
	if got := TokenFromRequest(req, true); got != "header-wins" {
		t.Fatalf("expected header token, got %q", got)
	}
}
