package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusDraft    OrderStatus = "DRAFT"
	OrderStatusPending  OrderStatus = "PENDING"
	OrderStatusApproved OrderStatus = "APPROVED"
	OrderStatusArchived OrderStatus = "ARCHIVED"
)

var orderStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusPending,
	OrderStatusApproved,
	OrderStatusArchived,
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	for _, known := range orderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseOrderStatus accepts any casing ("pending", "Pending", "PENDING").
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", Validation(fmt.Sprintf("Invalid status '%s'", raw))
	}
	return s, nil
}

// OrderItem is a line of an order. Quantity is always > 0 and Price >= 0 once
// persisted.
type OrderItem struct {
	ID       string
	OrderID  string
	Name     string
	Quantity int
	Price    decimal.Decimal
}

// Subtotal is Price × Quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order is an aggregate owned by exactly one user. Owner is populated by the
// service layer when the order is loaded; stores only persist OwnerID.
type Order struct {
	ID          string
	Title       string
	Description string
	Status      OrderStatus
	OwnerID     string
	Owner       *User
	Items       []OrderItem
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Total is recomputed from the current item set on every call; it is never
// stored.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// FindItem returns the item with the given id.
func (o *Order) FindItem(itemID string) (OrderItem, bool) {
	for _, item := range o.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return OrderItem{}, false
}

// Clone returns a deep copy. Owner is shared since users are treated as
// read-only values.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = make([]OrderItem, len(o.Items))
	copy(c.Items, o.Items)
	return &c
}
