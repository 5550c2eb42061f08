package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/orderdesk/orderdesk/internal/api/graphql"
	"github.com/orderdesk/orderdesk/internal/api/middleware"
	"github.com/orderdesk/orderdesk/internal/core/domain"
	"github.com/orderdesk/orderdesk/internal/core/ports"
)

// ----- Stubs -----------------------------------------------------------------

type stubAuth struct{ ports.AuthService }

func (stubAuth) Me(_ context.Context, p *domain.Principal) (*domain.User, error) {
	if p == nil {
		return nil, nil
	}
	return &domain.User{ID: p.UserID, Username: p.Username, Role: p.Role}, nil
}

type stubTokens struct{}

func (stubTokens) ValidateToken(raw string) (*domain.Principal, error) {
	if raw == "user-token" {
		return &domain.Principal{UserID: "user-001", Username: "user", Role: domain.RoleUser}, nil
	}
	return nil, domain.ErrInvalidToken
}

func newGraphQLServer(t *testing.T) *echo.Echo {
	t.Helper()
	r := graphql.NewResolver(stubAuth{}, nil, zerolog.Nop())
	exec, err := graphql.NewExecutor(r, graphql.NewPresenter(false, zerolog.Nop()), zerolog.Nop())
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	h := NewGraphQLHandler(exec, zerolog.Nop())

	e := echo.New()
	e.Use(middleware.Identity(stubTokens{}, zerolog.Nop()))
	e.POST("/graphql", h.Execute)
	e.GET("/graphql", h.Info)
	return e
}

func postGraphQL(e *echo.Echo, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

// ----- Tests -----------------------------------------------------------------

func TestGraphQLHandler_UsesBearerIdentity(t *testing.T) {
	e := newGraphQLServer(t)

	rec := postGraphQL(e, `{"query":"{ me { id username } }"}`, "user-token")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"data":{"me":{"id":"user-001","username":"user"}}}` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestGraphQLHandler_InvalidTokenIsAnonymous(t *testing.T) {
	e := newGraphQLServer(t)

	rec := postGraphQL(e, `{"query":"{ me { id } }"}`, "forged")
	if got := strings.TrimSpace(rec.Body.String()); got != `{"data":{"me":null}}` {
		t.Fatalf("unexpected body %s", got)
	}
}

func TestGraphQLHandler_MalformedBody(t *testing.T) {
	e := newGraphQLServer(t)

	for _, body := range []string{`{"query":`, `{"variables":{}}`} {
		if rec := postGraphQL(e, body, ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestGraphQLHandler_ValidationFailureIs200(t *testing.T) {
	e := newGraphQLServer(t)

	rec := postGraphQL(e, `{"query":"{ nope }"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp graphql.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Errors) == 0 || resp.Errors[0].Extensions["code"] != graphql.CodeValidationFailed {
		t.Fatalf("expected validation error, got %+v", resp.Errors)
	}
}

func TestGraphQLHandler_Info(t *testing.T) {
	e := newGraphQLServer(t)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/graphql", nil))

	var info graphQLInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Service != "order-api" || info.Endpoint != "/graphql" || info.Method != http.MethodPost {
		t.Fatalf("unexpected endpoint description %+v", info)
	}
	if len(info.Queries) != 4 || len(info.Mutations) != 6 {
		t.Fatalf("unexpected operations: %v / %v", info.Queries, info.Mutations)
	}
	for _, q := range info.Queries {
		if strings.HasPrefix(q, "__") {
			t.Fatalf("introspection field listed: %s", q)
		}
	}
}
