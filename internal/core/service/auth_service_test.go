package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/orderdesk/orderdesk/internal/core/domain"
	"github.com/orderdesk/orderdesk/internal/infrastructure/db/memory"
	"github.com/orderdesk/orderdesk/internal/infrastructure/db/seed"
)

func newSeededStore(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.NewStore()
	if err := seed.Run(context.Background(), store.Users(), store.Orders(), zerolog.Nop()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

func TestAuthService_Login_Success(t *testing.T) {
	store := newSeededStore(t)
	tokens := newTestTokenService(t, nil)
	svc := NewAuthService(store.Users(), tokens, zerolog.Nop())

	res, err := svc.Login(context.Background(), "admin", "admin123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected token, got empty")
	}
	if res.User == nil || res.User.ID != seed.AdminID {
		t.Fatalf("unexpected user: %+v", res.User)
	}

	p, err := tokens.ValidateToken(res.Token)
	if err != nil {
		t.Fatalf("issued token does not validate: %v", err)
	}
	if p.UserID != seed.AdminID || p.Role != domain.RoleAdmin {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	store := newSeededStore(t)
	svc := NewAuthService(store.Users(), newTestTokenService(t, nil), zerolog.Nop())

	if _, err := svc.Login(context.Background(), "admin", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for bad password, got %v", err)
	}
	if _, err := svc.Login(context.Background(), "ghost", "admin123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestAuthService_Login_Validation(t *testing.T) {
	svc := NewAuthService(memory.NewStore().Users(), newTestTokenService(t, nil), zerolog.Nop())

	_, err := svc.Login(context.Background(), "  ", "x")
	if !errors.Is(err, domain.ErrValidation) || domain.MessageOf(err) != "Username is required" {
		t.Fatalf("expected username validation error, got %v", err)
	}

	_, err = svc.Login(context.Background(), "admin", "")
	if !errors.Is(err, domain.ErrValidation) || domain.MessageOf(err) != "Password is required" {
		t.Fatalf("expected password validation error, got %v", err)
	}
}

func TestAuthService_Me(t *testing.T) {
	store := newSeededStore(t)
	svc := NewAuthService(store.Users(), newTestTokenService(t, nil), zerolog.Nop())

	u, err := svc.Me(context.Background(), nil)
	if err != nil || u != nil {
		t.Fatalf("anonymous Me should be (nil, nil), got (%v, %v)", u, err)
	}

	u, err = svc.Me(context.Background(), &domain.Principal{UserID: seed.UserID, Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("Me returned error: %v", err)
	}
	if u.Username != "user" {
		t.Fatalf("unexpected user: %+v", u)
	}
}
