package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/orderdesk/orderdesk/internal/core/domain"
)

// CreateOrderInput carries the fields of a new order.
type CreateOrderInput struct {
	Title       string `validate:"required"`
	Description string
}

// UpdateOrderInput applies only the non-nil fields.
type UpdateOrderInput struct {
	ID          string  `validate:"required"`
	Title       *string `validate:"omitnil,min=1"`
	Description *string
	Status      *string
}

// AddOrderItemInput carries a new line for an existing order.
type AddOrderItemInput struct {
	OrderID  string          `validate:"required"`
	Name     string          `validate:"required"`
	Quantity int             `validate:"gt=0"`
	Price    decimal.Decimal `validate:"-"`
}

// OrderStats is the dashboard summary.
type OrderStats struct {
	TotalOrders   int64
	TotalUsers    int64
	PendingOrders int64
	TotalValue    decimal.Decimal
}

// OrderService defines the order use cases. Every method receives the caller
// identity explicitly; nil means anonymous.
type OrderService interface {
	List(ctx context.Context, p *domain.Principal) ([]*domain.Order, error)
	Get(ctx context.Context, p *domain.Principal, id string) (*domain.Order, error)
	Create(ctx context.Context, p *domain.Principal, in CreateOrderInput) (*domain.Order, error)
	Update(ctx context.Context, p *domain.Principal, in UpdateOrderInput) (*domain.Order, error)
	Delete(ctx context.Context, p *domain.Principal, id string) error
	AddItem(ctx context.Context, p *domain.Principal, in AddOrderItemInput) (*domain.OrderItem, *domain.Order, error)
	RemoveItem(ctx context.Context, p *domain.Principal, itemID string) (*domain.Order, error)
	Stats(ctx context.Context, p *domain.Principal) (*OrderStats, error)
}
