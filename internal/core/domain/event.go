package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventMethod names the client-side handler a change event is dispatched to.
type EventMethod string

const (
	MethodOrderCreated EventMethod = "OrderCreated"
	MethodOrderUpdated EventMethod = "OrderUpdated"
	MethodOrderDeleted EventMethod = "OrderDeleted"
)

// AllOrdersGroup receives every global event.
const AllOrdersGroup = "all-orders"

// OrderGroup is the hub group subscribed to changes of a single order.
func OrderGroup(orderID string) string {
	return "order-" + orderID
}

// ChangeEvent is the ephemeral message pushed to the hub. An empty Group
// means global delivery. ID identifies one logical send so that a retried
// POST can be recognised by the hub.
type ChangeEvent struct {
	ID     string          `json:"id,omitempty"`
	Method EventMethod     `json:"method" validate:"required"`
	Group  string          `json:"group,omitempty"`
	Data   json.RawMessage `json:"data"`
}

// Global reports whether the event has no target group.
func (e ChangeEvent) Global() bool { return e.Group == "" }

// UserSnapshot is the public part of a user; never credentials.
type UserSnapshot struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type ItemSnapshot struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Subtotal float64 `json:"subtotal"`
}

// OrderSnapshot is the payload of OrderCreated and OrderUpdated events.
type OrderSnapshot struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      OrderStatus    `json:"status"`
	Items       []ItemSnapshot `json:"items"`
	Total       float64        `json:"total"`
	CreatedBy   *UserSnapshot  `json:"createdBy,omitempty"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// OrderDeletedPayload is the payload of OrderDeleted events.
type OrderDeletedPayload struct {
	OrderID string `json:"orderId"`
}

// NewOrderSnapshot builds the broadcast view of o.
func NewOrderSnapshot(o *Order) OrderSnapshot {
	items := make([]ItemSnapshot, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemSnapshot{
			ID:       it.ID,
			Name:     it.Name,
			Quantity: it.Quantity,
			Price:    it.Price.InexactFloat64(),
			Subtotal: it.Subtotal().InexactFloat64(),
		})
	}
	snap := OrderSnapshot{
		ID:          o.ID,
		Title:       o.Title,
		Description: o.Description,
		Status:      o.Status,
		Items:       items,
		Total:       o.Total().InexactFloat64(),
		UpdatedAt:   o.UpdatedAt,
	}
	if o.Owner != nil {
		snap.CreatedBy = &UserSnapshot{
			ID:       o.Owner.ID,
			Username: o.Owner.Username,
			Email:    o.Owner.Email,
			Role:     o.Owner.Role,
		}
	}
	return snap
}

// OrderChangeEvents returns the messages to send for one change of an order:
//
//	OrderUpdated → group "order-{id}" and global
//	OrderCreated → global
//	OrderDeleted → global
//
// Every message gets its own id.
func OrderChangeEvents(method EventMethod, orderID string, payload any) ([]ChangeEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", method, err)
	}

	global := ChangeEvent{ID: uuid.NewString(), Method: method, Data: data}
	switch method {
	case MethodOrderUpdated:
		targeted := ChangeEvent{ID: uuid.NewString(), Method: method, Group: OrderGroup(orderID), Data: data}
		return []ChangeEvent{targeted, global}, nil
	case MethodOrderCreated, MethodOrderDeleted:
		return []ChangeEvent{global}, nil
	default:
		return nil, fmt.Errorf("unknown event method %q", method)
	}
}
