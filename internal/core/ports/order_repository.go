package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/orderdesk/orderdesk/internal/core/domain"
)

// OrderFilter narrows List and Count. Zero values match everything.
type OrderFilter struct {
	OwnerID string
	Status  domain.OrderStatus
}

// OrderRepository persists orders together with their items. Implementations
// return domain.ErrOrderNotFound / domain.ErrItemNotFound (possibly wrapped)
// for missing records. Returned orders never have Owner set.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	// FindByItemID returns the order that contains the item.
	FindByItemID(ctx context.Context, itemID string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]*domain.Order, error)
	// Update replaces title, description, status and updated-at. Items are
	// left untouched.
	Update(ctx context.Context, order *domain.Order) error
	// Delete removes the order and all of its items.
	Delete(ctx context.Context, id string) error
	AddItem(ctx context.Context, orderID string, item domain.OrderItem) error
	RemoveItem(ctx context.Context, orderID, itemID string) error
	Count(ctx context.Context, filter OrderFilter) (int64, error)
	// TotalValue is Σ price × quantity across every item of every order.
	TotalValue(ctx context.Context) (decimal.Decimal, error)
}
