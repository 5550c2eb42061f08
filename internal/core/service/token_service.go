package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/orderdesk/orderdesk/internal/core/domain"
)

// MinSigningKeyLength is the shortest accepted HMAC key, in characters.
const MinSigningKeyLength = 32

// RoleClaimType is the role claim name understood by claims-based frameworks.
// Tokens carry the role under both this name and the plain "role" claim.
const RoleClaimType = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"

// TokenConfig holds the token settings. It is immutable once the service is
// built.
type TokenConfig struct {
	SigningKey string
	Issuer     string
	Audience   string
	Lifetime   time.Duration
	// SkipValidation trusts an upstream gateway: claims are read without
	// signature, issuer, audience or expiry checks.
	SkipValidation bool
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UniqueName string `json:"unique_name,omitempty"`
	Email      string `json:"email,omitempty"`
	Role       string `json:"role,omitempty"`
	RoleURI    string `json:"http://schemas.microsoft.com/ws/2008/06/identity/claims/role,omitempty"`
}

// TokenService issues and validates HS256 tokens. Tokens are stateless: claims
// reflect the user at issuance and are never checked against the store again.
type TokenService struct {
	key      []byte
	issuer   string
	audience string
	lifetime time.Duration
	skip     bool
	now      func() time.Time
	parser   *jwt.Parser
}

// NewTokenService fails fast on a key shorter than MinSigningKeyLength or an
// empty issuer or audience.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if len(cfg.SigningKey) < MinSigningKeyLength {
		return nil, fmt.Errorf("token service: signing key must be at least %d characters", MinSigningKeyLength)
	}
	if cfg.Issuer == "" {
		return nil, errors.New("token service: issuer is required")
	}
	if cfg.Audience == "" {
		return nil, errors.New("token service: audience is required")
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = 60 * time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &TokenService{
		key:      []byte(cfg.SigningKey),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		lifetime: cfg.Lifetime,
		skip:     cfg.SkipValidation,
		now:      now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithAudience(cfg.Audience),
			jwt.WithExpirationRequired(),
			jwt.WithIssuedAt(),
			jwt.WithLeeway(0),
			jwt.WithStrictDecoding(),
			jwt.WithTimeFunc(now),
		),
	}, nil
}

// IssueToken signs a token for user and returns it with its expiry.
func (s *TokenService) IssueToken(user *domain.User) (string, time.Time, error) {
	if user == nil || user.ID == "" {
		return "", time.Time{}, errors.New("issue token: user id is required")
	}

	now := s.now()
	expiresAt := now.Add(s.lifetime)
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UniqueName: user.Username,
		Email:      user.Email,
		Role:       user.Role,
		RoleURI:    user.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken checks signature, algorithm, issuer, audience and expiry
// with zero clock skew. Every failure wraps domain.ErrInvalidToken. With
// SkipValidation set it only decodes the claims.
func (s *TokenService) ValidateToken(raw string) (*domain.Principal, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", domain.ErrInvalidToken)
	}
	if s.skip {
		return s.parseUnverified(raw)
	}

	claims := &tokenClaims{}
	tkn, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	if !tkn.Valid {
		return nil, fmt.Errorf("%w: token not valid", domain.ErrInvalidToken)
	}
	return principalFromClaims(claims)
}

func (s *TokenService) parseUnverified(raw string) (*domain.Principal, error) {
	claims := &tokenClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}
	return principalFromClaims(claims)
}

func principalFromClaims(c *tokenClaims) (*domain.Principal, error) {
	if c.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}
	role := c.Role
	if role == "" {
		role = c.RoleURI
	}
	return &domain.Principal{
		UserID:   c.Subject,
		Username: c.UniqueName,
		Email:    c.Email,
		Role:     role,
	}, nil
}
