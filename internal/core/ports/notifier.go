package ports

import "github.com/orderdesk/orderdesk/internal/core/domain"

// Notifier pushes order changes to real-time subscribers. Calls never block
// on delivery and never report failure; delivery is best-effort.
type Notifier interface {
	BroadcastCreated(order *domain.Order)
	BroadcastUpdated(order *domain.Order)
	BroadcastDeleted(orderID string)
}
