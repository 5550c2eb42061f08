// Package notify turns committed order changes into hub broadcasts. Delivery
// is asynchronous and best-effort: failures are logged and counted, never
// returned to the code that changed the order.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/orderdesk/orderdesk/internal/core/domain"
	"github.com/orderdesk/orderdesk/internal/pkg/metrics"
)

const (
	ModeHub  = "hub"
	ModeLog  = "log"
	ModeNone = "none"
)

// Enqueuer accepts events for background delivery without blocking.
type Enqueuer interface {
	Enqueue(key string, event domain.ChangeEvent) bool
}

// Notifier implements ports.Notifier on top of an Enqueuer.
type Notifier struct {
	queue Enqueuer
	log   zerolog.Logger
}

func NewNotifier(queue Enqueuer, log zerolog.Logger) *Notifier {
	return &Notifier{queue: queue, log: log}
}

func (n *Notifier) BroadcastCreated(order *domain.Order) {
	n.publish(domain.MethodOrderCreated, order.ID, domain.NewOrderSnapshot(order))
}

// BroadcastUpdated sends to the order's own group and globally.
func (n *Notifier) BroadcastUpdated(order *domain.Order) {
	n.publish(domain.MethodOrderUpdated, order.ID, domain.NewOrderSnapshot(order))
}

func (n *Notifier) BroadcastDeleted(orderID string) {
	n.publish(domain.MethodOrderDeleted, orderID, domain.OrderDeletedPayload{OrderID: orderID})
}

func (n *Notifier) publish(method domain.EventMethod, orderID string, payload any) {
	events, err := domain.OrderChangeEvents(method, orderID, payload)
	if err != nil {
		metrics.NotificationFailuresTotal.WithLabelValues("encode").Inc()
		n.log.Error().Err(err).Str("order_id", orderID).Msg("build change events")
		return
	}
	for _, evt := range events {
		n.queue.Enqueue(orderID, evt)
	}
}

// Poster performs one delivery attempt.
type Poster interface {
	Post(ctx context.Context, event domain.ChangeEvent) error
}

// HubSender delivers events to the hub with retries. It implements
// queue.Sender.
type HubSender struct {
	poster  Poster
	retrier *Retrier
	log     zerolog.Logger
}

func NewHubSender(poster Poster, retrier *Retrier, log zerolog.Logger) *HubSender {
	return &HubSender{poster: poster, retrier: retrier, log: log}
}

func (s *HubSender) Send(ctx context.Context, event domain.ChangeEvent) error {
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.poster.Post(ctx, event)
	})
	if err == nil {
		metrics.NotificationsSentTotal.WithLabelValues(string(event.Method)).Inc()
		s.log.Debug().Str("event_id", event.ID).Str("method", string(event.Method)).Str("group", event.Group).Msg("event delivered")
		return nil
	}

	reason := "exhausted"
	var pe *PermanentError
	if errors.As(err, &pe) {
		reason = "permanent"
	}
	metrics.NotificationFailuresTotal.WithLabelValues(reason).Inc()
	return fmt.Errorf("%s (%s): %w", domain.CodeDeliveryFailure, reason, err)
}

// LogSender writes events to the log instead of delivering them. Used when
// no hub is running.
type LogSender struct {
	log zerolog.Logger
}

func NewLogSender(log zerolog.Logger) *LogSender { return &LogSender{log: log} }

func (s *LogSender) Send(_ context.Context, event domain.ChangeEvent) error {
	s.log.Info().
		Str("event_id", event.ID).
		Str("method", string(event.Method)).
		Str("group", event.Group).
		RawJSON("data", event.Data).
		Msg("change event")
	return nil
}

// Nop discards every notification.
type Nop struct{}

func (Nop) BroadcastCreated(*domain.Order) {}
func (Nop) BroadcastUpdated(*domain.Order) {}
func (Nop) BroadcastDeleted(string)        {}
