package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestOrderChangeEvents_Updated(t *testing.T) {
	events, err := OrderChangeEvents(MethodOrderUpdated, "order-001", NewOrderSnapshot(newTestOrder()))
	if err != nil {
		t.Fatalf("OrderChangeEvents returned error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Group != "order-order-001" {
		t.Fatalf("expected targeted group order-order-001, got %q", events[0].Group)
	}
	if !events[1].Global() {
		t.Fatalf("expected second event to be global, got group %q", events[1].Group)
	}
	if events[0].ID == "" || events[0].ID == events[1].ID {
		t.Fatalf("expected distinct event ids, got %q and %q", events[0].ID, events[1].ID)
	}
}

func TestOrderChangeEvents_GlobalOnly(t *testing.T) {
	for _, m := range []EventMethod{MethodOrderCreated, MethodOrderDeleted} {
		events, err := OrderChangeEvents(m, "order-001", OrderDeletedPayload{OrderID: "order-001"})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", m, err)
		}
		if len(events) != 1 || !events[0].Global() {
			t.Fatalf("%s: expected a single global event, got %+v", m, events)
		}
	}
}

func TestOrderChangeEvents_UnknownMethod(t *testing.T) {
	if _, err := OrderChangeEvents("OrderShipped", "x", nil); err == nil {
		t.Fatalf("expected error for unknown method")
	}
}

func TestNewOrderSnapshot_OmitsCredentials(t *testing.T) {
	o := newTestOrder()
	o.Owner = &User{ID: "admin-001", Username: "admin", PasswordHash: "$2a$10$secret", Role: RoleAdmin}

	raw, err := json.Marshal(NewOrderSnapshot(o))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "secret") {
		t.Fatalf("snapshot leaked password hash: %s", raw)
	}

	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	if decoded["total"].(float64) != 774.5 {
		t.Fatalf("unexpected total in payload: %v", decoded["total"])
	}
}

func TestCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{Unauthenticated("User not authenticated"), CodeAuthenticationRequired},
		{ErrInvalidCredentials, CodeAuthenticationRequired},
		{Forbidden("nope"), CodeForbidden},
		{Validation("Title is required"), CodeValidation},
		{NotFound(ErrOrderNotFound, "Order x not found"), CodeNotFound},
		{fmt.Errorf("find order: %w", ErrOrderNotFound), CodeNotFound},
		{errors.New("boom"), CodeInternal},
	}

	for _, tc := range cases {
		if got := CodeOf(tc.err); got != tc.want {
			t.Fatalf("CodeOf(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestMessageOf(t *testing.T) {
	if got := MessageOf(Forbidden("Only administrators can delete orders")); got != "Only administrators can delete orders" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := MessageOf(fmt.Errorf("login: %w", ErrInvalidCredentials)); got != "Invalid username or password" {
		t.Fatalf("unexpected message %q", got)
	}
}
