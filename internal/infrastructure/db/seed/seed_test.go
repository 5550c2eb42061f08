package seed

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/orderdesk/orderdesk/internal/core/ports"
	"github.com/orderdesk/orderdesk/internal/infrastructure/db/memory"
)

func TestRun_LoadsDemoDataOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	for i := 0; i < 2; i++ {
		if err := Run(ctx, store.Users(), store.Orders(), zerolog.Nop()); err != nil {
			t.Fatalf("Run #%d: %v", i+1, err)
		}
	}

	if n, _ := store.Users().Count(ctx); n != 2 {
		t.Fatalf("expected 2 users, got %d", n)
	}
	if n, _ := store.Orders().Count(ctx, ports.OrderFilter{}); n != 3 {
		t.Fatalf("expected 3 orders, got %d", n)
	}

	total, _ := store.Orders().TotalValue(ctx)
	if !total.Equal(decimal.RequireFromString("17459.5")) {
		t.Fatalf("unexpected seeded total value %s", total)
	}
}

func TestRun_HashesPasswords(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	if err := Run(ctx, store.Users(), store.Orders(), zerolog.Nop()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	admin, err := store.Users().FindByUsername(ctx, "admin")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if admin.PasswordHash == "admin123" {
		t.Fatalf("password stored in plain text")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte("admin123")); err != nil {
		t.Fatalf("hash does not match seeded password: %v", err)
	}
}
