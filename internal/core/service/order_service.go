package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/orderdesk/orderdesk/internal/core/authz"
	"github.com/orderdesk/orderdesk/internal/core/domain"
	"github.com/orderdesk/orderdesk/internal/core/ports"
	"github.com/orderdesk/orderdesk/internal/pkg/metrics"
)

// OrderService implements the order use cases. Authorization runs before any
// write; notifications run after the write has been committed and never
// affect the result.
type OrderService struct {
	orders   ports.OrderRepository
	users    ports.UserRepository
	policy   authz.Policy
	notifier ports.Notifier
	validate *inputValidator
	log      zerolog.Logger
	now      func() time.Time
}

func NewOrderService(
	orders ports.OrderRepository,
	users ports.UserRepository,
	policy authz.Policy,
	notifier ports.Notifier,
	log zerolog.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		users:    users,
		policy:   policy,
		notifier: notifier,
		validate: newInputValidator(),
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// List returns every order for admins and only the caller's own otherwise.
func (s *OrderService) List(ctx context.Context, p *domain.Principal) ([]*domain.Order, error) {
	ownerID, err := authz.ListScope(p)
	if err != nil {
		return nil, err
	}

	orders, err := s.orders.List(ctx, ports.OrderFilter{OwnerID: ownerID})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	s.attachOwners(ctx, orders...)
	return orders, nil
}

func (s *OrderService) Get(ctx context.Context, p *domain.Principal, id string) (*domain.Order, error) {
	if err := authz.RequireIdentity(p); err != nil {
		return nil, err
	}
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(p, authz.ActionView, order.OwnerID); err != nil {
		return nil, err
	}
	s.attachOwners(ctx, order)
	return order, nil
}

func (s *OrderService) Create(ctx context.Context, p *domain.Principal, in ports.CreateOrderInput) (*domain.Order, error) {
	if err := authz.RequireIdentity(p); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if err := s.validate.check(in); err != nil {
		return nil, err
	}

	now := s.now()
	order := &domain.Order{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Status:      domain.OrderStatusDraft,
		OwnerID:     p.UserID,
		Items:       []domain.OrderItem{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	metrics.OrderMutationsTotal.WithLabelValues("create").Inc()

	s.attachOwners(ctx, order)
	s.log.Info().Str("order_id", order.ID).Str("user_id", p.UserID).Msg("order created")
	s.notifier.BroadcastCreated(order)
	return order, nil
}

// Update applies only the fields that are set on in.
func (s *OrderService) Update(ctx context.Context, p *domain.Principal, in ports.UpdateOrderInput) (*domain.Order, error) {
	if err := authz.RequireIdentity(p); err != nil {
		return nil, err
	}
	in.ID = strings.TrimSpace(in.ID)
	if in.Title != nil {
		trimmed := strings.TrimSpace(*in.Title)
		in.Title = &trimmed
	}
	if err := s.validate.check(in); err != nil {
		return nil, err
	}
	var status domain.OrderStatus
	if in.Status != nil {
		parsed, err := domain.ParseOrderStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		status = parsed
	}

	order, err := s.load(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(p, authz.ActionUpdate, order.OwnerID); err != nil {
		return nil, err
	}

	if in.Title != nil {
		order.Title = *in.Title
	}
	if in.Description != nil {
		order.Description = strings.TrimSpace(*in.Description)
	}
	if status != "" {
		order.Status = status
	}
	order.UpdatedAt = s.now()

	if err := s.orders.Update(ctx, order); err != nil {
		return nil, fmt.Errorf("update order: %w", err)
	}
	metrics.OrderMutationsTotal.WithLabelValues("update").Inc()

	s.attachOwners(ctx, order)
	s.log.Info().Str("order_id", order.ID).Str("user_id", p.UserID).Msg("order updated")
	s.notifier.BroadcastUpdated(order)
	return order, nil
}

func (s *OrderService) Delete(ctx context.Context, p *domain.Principal, id string) error {
	if err := authz.AuthorizeRole(s.policy, p, authz.ActionDelete); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Validation("Order ID is required")
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(p, authz.ActionDelete, order.OwnerID); err != nil {
		return err
	}

	if err := s.orders.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return notFoundOrder(id)
		}
		return fmt.Errorf("delete order: %w", err)
	}
	metrics.OrderMutationsTotal.WithLabelValues("delete").Inc()

	s.log.Info().Str("order_id", id).Str("user_id", p.UserID).Msg("order deleted")
	s.notifier.BroadcastDeleted(id)
	return nil
}

func (s *OrderService) AddItem(ctx context.Context, p *domain.Principal, in ports.AddOrderItemInput) (*domain.OrderItem, *domain.Order, error) {
	if err := authz.RequireIdentity(p); err != nil {
		return nil, nil, err
	}
	in.OrderID = strings.TrimSpace(in.OrderID)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.check(in); err != nil {
		return nil, nil, err
	}
	if in.Price.IsNegative() {
		return nil, nil, domain.Validation("Price cannot be negative")
	}

	order, err := s.load(ctx, in.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if err := s.policy.Authorize(p, authz.ActionAddItem, order.OwnerID); err != nil {
		return nil, nil, err
	}

	item := domain.OrderItem{
		ID:       uuid.NewString(),
		OrderID:  order.ID,
		Name:     in.Name,
		Quantity: in.Quantity,
		Price:    in.Price,
	}
	if err := s.orders.AddItem(ctx, order.ID, item); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return nil, nil, notFoundOrder(order.ID)
		}
		return nil, nil, fmt.Errorf("add item: %w", err)
	}
	metrics.OrderMutationsTotal.WithLabelValues("add_item").Inc()

	updated, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		// The item is stored; report it against the order we already hold.
		s.log.Warn().Err(err).Str("order_id", order.ID).Msg("reload after add item failed")
		order.Items = append(order.Items, item)
		updated = order
	}
	s.attachOwners(ctx, updated)
	s.notifier.BroadcastUpdated(updated)
	return &item, updated, nil
}

// RemoveItem deletes an item and returns the parent order as it is afterwards.
func (s *OrderService) RemoveItem(ctx context.Context, p *domain.Principal, itemID string) (*domain.Order, error) {
	if err := authz.RequireIdentity(p); err != nil {
		return nil, err
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, domain.Validation("Item ID is required")
	}

	order, err := s.orders.FindByItemID(ctx, itemID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound(domain.ErrItemNotFound, fmt.Sprintf("Item %s not found", itemID))
		}
		return nil, fmt.Errorf("find item: %w", err)
	}
	if err := s.policy.Authorize(p, authz.ActionRemoveItem, order.OwnerID); err != nil {
		return nil, err
	}

	if err := s.orders.RemoveItem(ctx, order.ID, itemID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound(domain.ErrItemNotFound, fmt.Sprintf("Item %s not found", itemID))
		}
		return nil, fmt.Errorf("remove item: %w", err)
	}
	metrics.OrderMutationsTotal.WithLabelValues("remove_item").Inc()

	updated, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			// Deleted concurrently; nothing left to broadcast.
			return nil, nil
		}
		return nil, fmt.Errorf("reload order: %w", err)
	}
	s.attachOwners(ctx, updated)
	s.notifier.BroadcastUpdated(updated)
	return updated, nil
}

// Stats runs its four aggregate queries concurrently.
func (s *OrderService) Stats(ctx context.Context, p *domain.Principal) (*ports.OrderStats, error) {
	if err := authz.RequireIdentity(p); err != nil {
		return nil, err
	}

	var stats ports.OrderStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.orders.Count(gctx, ports.OrderFilter{})
		stats.TotalOrders = n
		return err
	})
	g.Go(func() error {
		n, err := s.users.Count(gctx)
		stats.TotalUsers = n
		return err
	})
	g.Go(func() error {
		n, err := s.orders.Count(gctx, ports.OrderFilter{Status: domain.OrderStatusPending})
		stats.PendingOrders = n
		return err
	})
	g.Go(func() error {
		v, err := s.orders.TotalValue(gctx)
		stats.TotalValue = v
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("order stats: %w", err)
	}
	return &stats, nil
}

func (s *OrderService) load(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, notFoundOrder(id)
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return order, nil
}

// attachOwners loads the owning user of each order. A missing user leaves
// Owner nil.
func (s *OrderService) attachOwners(ctx context.Context, orders ...*domain.Order) {
	cache := make(map[string]*domain.User)
	for _, o := range orders {
		if o == nil {
			continue
		}
		if u, ok := cache[o.OwnerID]; ok {
			o.Owner = u
			continue
		}
		u, err := s.users.FindByID(ctx, o.OwnerID)
		if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			s.log.Warn().Err(err).Str("owner_id", o.OwnerID).Msg("load order owner")
		}
		cache[o.OwnerID] = u
		o.Owner = u
	}
}

func notFoundOrder(id string) error {
	return domain.NotFound(domain.ErrOrderNotFound, fmt.Sprintf("Order %s not found", id))
}
