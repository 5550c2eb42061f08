package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func callWithKey(t *testing.T, configured, sent string) (int, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/broadcast", nil)
	if sent != "" {
		req.Header.Set(InternalAPIKeyHeader, sent)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	called := false
	handler := InternalAPIKey(configured)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec.Code, called
}

func TestInternalAPIKey_Allows(t *testing.T) {
	code, called := callWithKey(t, "s3cret", "s3cret")
	if !called || code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d (called=%v)", code, called)
	}
}

func TestInternalAPIKey_RejectsMismatch(t *testing.T) {
	for _, sent := range []string{"", "wrong", "s3cret "} {
		code, called := callWithKey(t, "s3cret", sent)
		if called {
			t.Fatalf("key %q: should not reach next handler", sent)
		}
		if code != http.StatusUnauthorized {
			t.Fatalf("key %q: expected 401, got %d", sent, code)
		}
	}
}

func TestInternalAPIKey_DisabledWhenUnset(t *testing.T) {
	code, called := callWithKey(t, "", "anything")
	if !called || code != http.StatusOK {
		t.Fatalf("expected pass-through with no key configured, got %d", code)
	}
}
