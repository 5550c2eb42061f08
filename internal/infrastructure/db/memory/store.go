// Package memory is an in-process store used for tests and for running the
// API without MongoDB.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/orderdesk/orderdesk/internal/core/domain"
	"github.com/orderdesk/orderdesk/internal/core/ports"
)

// Store holds users and orders behind a single mutex. Values are copied in
// and out so callers never share memory with the store.
type Store struct {
	mu     sync.RWMutex
	users  map[string]domain.User
	orders map[string]*domain.Order
}

func NewStore() *Store {
	return &Store{
		users:  make(map[string]domain.User),
		orders: make(map[string]*domain.Order),
	}
}

// Users returns the store as a ports.UserRepository.
func (s *Store) Users() ports.UserRepository { return userRepo{s} }

// Orders returns the store as a ports.OrderRepository.
func (s *Store) Orders() ports.OrderRepository { return orderRepo{s} }

// Ping always succeeds; it satisfies the readiness check signature.
func (s *Store) Ping(context.Context) error { return nil }

type userRepo struct{ s *Store }

func (r userRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &u, nil
}

func (r userRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.users[user.ID]; exists {
		return domain.ErrUserExists
	}
	for _, u := range r.s.users {
		if u.Username == user.Username {
			return domain.ErrUserExists
		}
	}
	r.s.users[user.ID] = *user
	return nil
}

func (r userRepo) Count(context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.users)), nil
}

type orderRepo struct{ s *Store }

func (r orderRepo) Create(_ context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := order.Clone()
	stored.Owner = nil
	r.s.orders[order.ID] = stored
	return nil
}

func (r orderRepo) FindByID(_ context.Context, id string) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (r orderRepo) FindByItemID(_ context.Context, itemID string) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, o := range r.s.orders {
		if _, ok := o.FindItem(itemID); ok {
			return o.Clone(), nil
		}
	}
	return nil, domain.ErrItemNotFound
}

func (r orderRepo) List(_ context.Context, filter ports.OrderFilter) ([]*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*domain.Order, 0, len(r.s.orders))
	for _, o := range r.s.orders {
		if matches(o, filter) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r orderRepo) Update(_ context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Title = order.Title
	o.Description = order.Description
	o.Status = order.Status
	o.UpdatedAt = order.UpdatedAt
	return nil
}

func (r orderRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}
	delete(r.s.orders, id)
	return nil
}

func (r orderRepo) AddItem(_ context.Context, orderID string, item domain.OrderItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	item.OrderID = orderID
	o.Items = append(o.Items, item)
	return nil
}

func (r orderRepo) RemoveItem(_ context.Context, orderID, itemID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	for i, it := range o.Items {
		if it.ID == itemID {
			o.Items = append(o.Items[:i:i], o.Items[i+1:]...)
			return nil
		}
	}
	return domain.ErrItemNotFound
}

func (r orderRepo) Count(_ context.Context, filter ports.OrderFilter) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, o := range r.s.orders {
		if matches(o, filter) {
			n++
		}
	}
	return n, nil
}

func (r orderRepo) TotalValue(context.Context) (decimal.Decimal, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	total := decimal.Zero
	for _, o := range r.s.orders {
		total = total.Add(o.Total())
	}
	return total, nil
}

func matches(o *domain.Order, f ports.OrderFilter) bool {
	if f.OwnerID != "" && o.OwnerID != f.OwnerID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	return true
}
