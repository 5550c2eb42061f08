package mongo

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/orderdesk/orderdesk/internal/core/domain"
	"github.com/orderdesk/orderdesk/internal/core/ports"
)

func TestOrderDocument_RoundTripKeepsExactPrices(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	o := &domain.Order{
		ID:      "order-002",
		Title:   "IT Equipment",
		Status:  domain.OrderStatusApproved,
		OwnerID: "user-001",
		Items: []domain.OrderItem{
			{ID: "item-004", Name: "Wireless Mouse", Quantity: 10, Price: decimal.RequireFromString("29.99")},
			{ID: "item-005", Name: "USB-C Hub", Quantity: 5, Price: decimal.RequireFromString("49.99")},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}

	doc, err := toOrderDocument(o)
	if err != nil {
		t.Fatalf("toOrderDocument: %v", err)
	}
	back, err := doc.toDomain()
	if err != nil {
		t.Fatalf("toDomain: %v", err)
	}

	if back.Status != domain.OrderStatusApproved || back.OwnerID != "user-001" {
		t.Fatalf("fields lost: %+v", back)
	}
	if len(back.Items) != 2 || back.Items[0].OrderID != "order-002" {
		t.Fatalf("items not restored: %+v", back.Items)
	}
	if !back.Total().Equal(o.Total()) {
		t.Fatalf("total drifted: %s vs %s", back.Total(), o.Total())
	}
}

func TestFilterDoc(t *testing.T) {
	if f := filterDoc(ports.OrderFilter{}); len(f) != 0 {
		t.Fatalf("expected empty filter, got %v", f)
	}
	f := filterDoc(ports.OrderFilter{OwnerID: "user-001", Status: domain.OrderStatusPending})
	if f["owner_id"] != "user-001" || f["status"] != "PENDING" {
		t.Fatalf("unexpected filter %v", f)
	}
}
