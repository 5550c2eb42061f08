package ports

import (
	"context"
	"time"

	"github.com/orderdesk/orderdesk/internal/core/domain"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
}

type AuthService interface {
	Login(ctx context.Context, username, password string) (*LoginResult, error)
	// Me returns (nil, nil) for an anonymous caller.
	Me(ctx context.Context, p *domain.Principal) (*domain.User, error)
}

// TokenIssuer signs tokens for authenticated users.
type TokenIssuer interface {
	IssueToken(user *domain.User) (string, time.Time, error)
}

// TokenValidator resolves a bearer token to a principal. Any failure returns
// an error wrapping domain.ErrInvalidToken.
type TokenValidator interface {
	ValidateToken(token string) (*domain.Principal, error)
}
