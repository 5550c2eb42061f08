package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/orderdesk/orderdesk/internal/core/authz"
	"github.com/orderdesk/orderdesk/internal/core/domain"
	"github.com/orderdesk/orderdesk/internal/core/ports"
	"github.com/orderdesk/orderdesk/internal/core/service"
	"github.com/orderdesk/orderdesk/internal/infrastructure/db/memory"
	"github.com/orderdesk/orderdesk/internal/infrastructure/db/seed"
	"github.com/orderdesk/orderdesk/internal/infrastructure/queue"
)

type recordingQueue struct {
	mu     sync.Mutex
	keys   []string
	events []domain.ChangeEvent
}

func (q *recordingQueue) Enqueue(key string, evt domain.ChangeEvent) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.keys = append(q.keys, key)
	q.events = append(q.events, evt)
	return true
}

func noWait(context.Context, time.Duration) error { return nil }

func TestHubClient_PostsEventWithKey(t *testing.T) {
	var got domain.ChangeEvent
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/broadcast" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		key = r.Header.Get(InternalAPIKeyHeader)
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewHubClient(srv.URL+"/", "shared-secret", nil)
	evt := domain.ChangeEvent{ID: "evt-1", Method: domain.MethodOrderUpdated, Group: "order-order-001", Data: json.RawMessage(`{"id":"order-001"}`)}
	if err := c.Post(context.Background(), evt); err != nil {
		t.Fatalf("Post returned error: %v", err)
	}

	if key != "shared-secret" {
		t.Fatalf("expected api key header, got %q", key)
	}
	if got.ID != "evt-1" || got.Method != domain.MethodOrderUpdated || got.Group != "order-order-001" {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestHubClient_NonSuccessIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid internal api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewHubClient(srv.URL, "wrong", nil).Post(context.Background(), domain.ChangeEvent{Method: domain.MethodOrderCreated})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 StatusError, got %v", err)
	}
	if IsTransient(err) {
		t.Fatalf("401 must not be retried")
	}
}

func TestNotifier_UpdatedGoesToGroupAndGlobal(t *testing.T) {
	q := &recordingQueue{}
	n := NewNotifier(q, zerolog.Nop())

	n.BroadcastUpdated(&domain.Order{ID: "order-001", Title: "Office Supplies", Status: domain.OrderStatusPending})

	if len(q.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(q.events))
	}
	if q.events[0].Group != domain.OrderGroup("order-001") || !q.events[1].Global() {
		t.Fatalf("unexpected delivery groups: %q, %q", q.events[0].Group, q.events[1].Group)
	}
	for _, k := range q.keys {
		if k != "order-001" {
			t.Fatalf("events must be keyed by order id, got %q", k)
		}
	}
}

func TestNotifier_CreatedAndDeletedAreGlobal(t *testing.T) {
	q := &recordingQueue{}
	n := NewNotifier(q, zerolog.Nop())

	n.BroadcastCreated(&domain.Order{ID: "order-009"})
	n.BroadcastDeleted("order-009")

	if len(q.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(q.events))
	}
	if !q.events[0].Global() || q.events[0].Method != domain.MethodOrderCreated {
		t.Fatalf("unexpected created event: %+v", q.events[0])
	}
	if !q.events[1].Global() || q.events[1].Method != domain.MethodOrderDeleted {
		t.Fatalf("unexpected deleted event: %+v", q.events[1])
	}

	var payload domain.OrderDeletedPayload
	if err := json.Unmarshal(q.events[1].Data, &payload); err != nil || payload.OrderID != "order-009" {
		t.Fatalf("unexpected deleted payload %s (%v)", q.events[1].Data, err)
	}
}

func TestHubSender_ExhaustedRetriesReportDeliveryFailure(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewRetrier(RetryConfig{}, zerolog.Nop())
	r.wait = noWait
	sender := NewHubSender(NewHubClient(srv.URL, "", nil), r, zerolog.Nop())

	err := sender.Send(context.Background(), domain.ChangeEvent{ID: "e", Method: domain.MethodOrderCreated})
	if err == nil || !strings.Contains(err.Error(), domain.CodeDeliveryFailure) {
		t.Fatalf("expected delivery failure, got %v", err)
	}
	if hits.Load() != 4 {
		t.Fatalf("expected 4 attempts, got %d", hits.Load())
	}
}

func TestMutationSucceedsWhileHubIsDown(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	store := memory.NewStore()
	if err := seed.Run(context.Background(), store.Users(), store.Orders(), zerolog.Nop()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	r := NewRetrier(RetryConfig{}, zerolog.Nop())
	r.wait = noWait
	dispatcher := queue.NewDispatcher(2, NewHubSender(NewHubClient(srv.URL, "", nil), r, zerolog.Nop()), zerolog.Nop())
	dispatcher.Start(context.Background())

	svc := service.NewOrderService(store.Orders(), store.Users(), authz.StrictPolicy{}, NewNotifier(dispatcher, zerolog.Nop()), zerolog.Nop())

	status := "APPROVED"
	order, err := svc.Update(context.Background(), &domain.Principal{UserID: seed.AdminID, Role: domain.RoleAdmin}, ports.UpdateOrderInput{
		ID:     "order-003",
		Status: &status,
	})
	if err != nil {
		t.Fatalf("mutation must succeed while the hub is down, got %v", err)
	}
	if order.Status != domain.OrderStatusApproved {
		t.Fatalf("unexpected status %s", order.Status)
	}

	_ = dispatcher.Stop(context.Background())

	// Two messages (group + global), each tried 1 + 3 times.
	if hits.Load() != 8 {
		t.Fatalf("expected 8 delivery attempts, got %d", hits.Load())
	}
	stored, _ := store.Orders().FindByID(context.Background(), "order-003")
	if stored.Status != domain.OrderStatusApproved {
		t.Fatalf("store must keep the committed change, got %s", stored.Status)
	}
}
