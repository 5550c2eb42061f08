package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/orderdesk/orderdesk/internal/core/domain"
)

const testSigningKey = "test-signing-key-that-is-at-least-32-chars"

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestTokenService(t *testing.T, clock *fakeClock) *TokenService {
	t.Helper()
	cfg := TokenConfig{
		SigningKey: testSigningKey,
		Issuer:     "orderdesk",
		Audience:   "orderdesk-api",
		Lifetime:   time.Hour,
	}
	if clock != nil {
		cfg.Now = clock.Now
	}
	svc, err := NewTokenService(cfg)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return svc
}

var testAdmin = &domain.User{ID: "admin-001", Username: "admin", Email: "admin@orderdesk.test", Role: domain.RoleAdmin}

func TestNewTokenService_FailsFast(t *testing.T) {
	cases := map[string]TokenConfig{
		"short key":      {SigningKey: "too-short", Issuer: "i", Audience: "a"},
		"missing issuer": {SigningKey: testSigningKey, Audience: "a"},
		"missing aud":    {SigningKey: testSigningKey, Issuer: "i"},
	}
	for name, cfg := range cases {
		if _, err := NewTokenService(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := newTestTokenService(t, nil)

	token, expiresAt, err := svc.IssueToken(testAdmin)
	if err != nil {
		t.Fatalf("IssueToken returned error: %v", err)
	}
	if time.Until(expiresAt) <= 59*time.Minute {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	p, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken returned error: %v", err)
	}
	if p.UserID != testAdmin.ID || p.Role != domain.RoleAdmin || p.Username != "admin" || p.Email != testAdmin.Email {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestTokenService_EmbedsRoleTwiceAndUniqueID(t *testing.T) {
	svc := newTestTokenService(t, nil)

	first, _, _ := svc.IssueToken(testAdmin)
	second, _, _ := svc.IssueToken(testAdmin)

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(first, claims); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims["role"] != domain.RoleAdmin || claims[RoleClaimType] != domain.RoleAdmin {
		t.Fatalf("expected role under both claim names, got %v", claims)
	}
	if claims["sub"] != "admin-001" || claims["unique_name"] != "admin" {
		t.Fatalf("unexpected identity claims: %v", claims)
	}

	other := jwt.MapClaims{}
	_, _, _ = jwt.NewParser().ParseUnverified(second, other)
	if claims["jti"] == "" || claims["jti"] == other["jti"] {
		t.Fatalf("expected unique jti, got %v and %v", claims["jti"], other["jti"])
	}
}

func TestTokenService_TamperedTokenIsRejected(t *testing.T) {
	svc := newTestTokenService(t, nil)
	token, _, err := svc.IssueToken(testAdmin)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	for i := range token {
		replacement := byte('A')
		if token[i] == 'A' {
			replacement = 'B'
		}
		tampered := token[:i] + string(replacement) + token[i+1:]

		if _, err := svc.ValidateToken(tampered); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("position %d: expected ErrInvalidToken, got %v", i, err)
		}
	}
}

func TestTokenService_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestTokenService(t, clock)

	token, _, err := svc.IssueToken(testAdmin)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	clock.t = clock.t.Add(59 * time.Minute)
	if _, err := svc.ValidateToken(token); err != nil {
		t.Fatalf("token should still be valid: %v", err)
	}

	clock.t = clock.t.Add(2 * time.Minute)
	if _, err := svc.ValidateToken(token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestTokenService_RejectsForeignTokens(t *testing.T) {
	svc := newTestTokenService(t, nil)

	otherIssuer, _ := NewTokenService(TokenConfig{SigningKey: testSigningKey, Issuer: "someone-else", Audience: "orderdesk-api"})
	otherAudience, _ := NewTokenService(TokenConfig{SigningKey: testSigningKey, Issuer: "orderdesk", Audience: "another-api"})
	otherKey, _ := NewTokenService(TokenConfig{SigningKey: strings.Repeat("k", 40), Issuer: "orderdesk", Audience: "orderdesk-api"})

	for name, issuer := range map[string]*TokenService{"issuer": otherIssuer, "audience": otherAudience, "key": otherKey} {
		token, _, err := issuer.IssueToken(testAdmin)
		if err != nil {
			t.Fatalf("%s: IssueToken: %v", name, err)
		}
		if _, err := svc.ValidateToken(token); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("wrong %s: expected ErrInvalidToken, got %v", name, err)
		}
	}
}

func TestTokenService_RejectsOtherAlgorithms(t *testing.T) {
	svc := newTestTokenService(t, nil)
	claims := jwt.MapClaims{
		"sub": "admin-001",
		"iss": "orderdesk",
		"aud": "orderdesk-api",
		"exp": time.Now().Add(time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSigningKey))
	if err != nil {
		t.Fatalf("sign hs512: %v", err)
	}

	for _, token := range []string{none, hs512, "", "not-a-token"} {
		if _, err := svc.ValidateToken(token); !errors.Is(err, domain.ErrInvalidToken) {
			t.Fatalf("expected %q to be rejected, got %v", token, err)
		}
	}
}

func TestTokenService_RequiresExpiry(t *testing.T) {
	svc := newTestTokenService(t, nil)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin-001",
		"iss": "orderdesk",
		"aud": "orderdesk-api",
	}).SignedString([]byte(testSigningKey))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.ValidateToken(token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected token without exp to be rejected, got %v", err)
	}
}

func TestTokenService_SkipValidation(t *testing.T) {
	svc, err := NewTokenService(TokenConfig{
		SigningKey:     testSigningKey,
		Issuer:         "orderdesk",
		Audience:       "orderdesk-api",
		SkipValidation: true,
	})
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	// Signed with a key the service does not know.
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "user-001",
		"role": domain.RoleUser,
	}).SignedString([]byte("unrelated"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	p, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("expected trusted token to parse, got %v", err)
	}
	if p.UserID != "user-001" || p.Role != domain.RoleUser {
		t.Fatalf("unexpected principal: %+v", p)
	}

	if _, err := svc.ValidateToken("garbage"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected garbage to be rejected in skip mode, got %v", err)
	}
}
