package ports

import (
	"context"

	"github.com/orderdesk/orderdesk/internal/core/domain"
)

// UserRepository defines persistence for user accounts.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Count(ctx context.Context) (int64, error)
}
