// Package seed loads the demo dataset into an empty store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/orderdesk/orderdesk/internal/core/domain"
	"github.com/orderdesk/orderdesk/internal/core/ports"
)

const (
	AdminID = "admin-001"
	UserID  = "user-001"
)

type seedUser struct {
	id, username, password, email, role string
}

var users = []seedUser{
	{AdminID, "admin", "admin123", "admin@orderdesk.local", domain.RoleAdmin},
	{UserID, "user", "user123", "user@orderdesk.local", domain.RoleUser},
}

func item(id, orderID, name string, qty int, price string) domain.OrderItem {
	return domain.OrderItem{ID: id, OrderID: orderID, Name: name, Quantity: qty, Price: decimal.RequireFromString(price)}
}

// Orders returns the demo orders. Each call builds fresh values.
func Orders(now time.Time) []*domain.Order {
	return []*domain.Order{
		{
			ID:          "order-001",
			Title:       "Office Supplies",
			Description: "Monthly office supplies order",
			Status:      domain.OrderStatusPending,
			OwnerID:     AdminID,
			CreatedAt:   now.Add(-7 * 24 * time.Hour),
			UpdatedAt:   now.Add(-7 * 24 * time.Hour),
			Items: []domain.OrderItem{
				item("item-001", "order-001", "Notebooks", 50, "5.99"),
				item("item-002", "order-001", "Pens (Box)", 20, "12.50"),
				item("item-003", "order-001", "Sticky Notes", 100, "2.25"),
			},
		},
		{
			ID:          "order-002",
			Title:       "IT Equipment",
			Description: "New laptops for development team",
			Status:      domain.OrderStatusApproved,
			OwnerID:     AdminID,
			CreatedAt:   now.Add(-3 * 24 * time.Hour),
			UpdatedAt:   now.Add(-1 * 24 * time.Hour),
			Items: []domain.OrderItem{
				item("item-004", "order-002", `MacBook Pro 14"`, 5, "2499.00"),
				item("item-005", "order-002", `External Monitor 27"`, 5, "449.00"),
			},
		},
		{
			ID:          "order-003",
			Title:       "Training Materials",
			Description: "Books and courses for Q1 training",
			Status:      domain.OrderStatusDraft,
			OwnerID:     UserID,
			CreatedAt:   now.Add(-1 * 24 * time.Hour),
			UpdatedAt:   now.Add(-1 * 24 * time.Hour),
			Items: []domain.OrderItem{
				item("item-006", "order-003", "Clean Code Book", 10, "45.00"),
				item("item-007", "order-003", "Pluralsight Subscription", 5, "299.00"),
			},
		},
	}
}

// Run inserts the demo users and orders unless the admin account already
// exists.
func Run(ctx context.Context, userRepo ports.UserRepository, orderRepo ports.OrderRepository, log zerolog.Logger) error {
	if _, err := userRepo.FindByID(ctx, AdminID); err == nil {
		log.Debug().Msg("seed data already present")
		return nil
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("seed: check existing data: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	for _, su := range users {
		hash, err := bcrypt.GenerateFromPassword([]byte(su.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("seed: hash password: %w", err)
		}
		u := &domain.User{
			ID:           su.id,
			Username:     su.username,
			Email:        su.email,
			PasswordHash: string(hash),
			Role:         su.role,
			CreatedAt:    now,
		}
		if err := userRepo.Create(ctx, u); err != nil && !errors.Is(err, domain.ErrUserExists) {
			return fmt.Errorf("seed: create user %s: %w", su.username, err)
		}
	}

	for _, o := range Orders(now) {
		if err := orderRepo.Create(ctx, o); err != nil {
			return fmt.Errorf("seed: create order %s: %w", o.ID, err)
		}
	}

	log.Info().Int("users", len(users)).Int("orders", 3).Msg("seed data loaded")
	return nil
}
