package queue

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/orderdesk/orderdesk/internal/core/domain"
	"github.com/orderdesk/orderdesk/internal/pkg/metrics"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
)

// Sender delivers one change event. Implementations own their retry policy.
type Sender interface {
	Send(ctx context.Context, event domain.ChangeEvent) error
}

type job struct {
	key   string
	event domain.ChangeEvent
}

// Dispatcher routes change events to a fixed set of workers using consistent
// hashing on the order id, so events of one order are sent in the order they
// were enqueued. Events of different orders are not ordered.
type Dispatcher struct {
	workers []chan job
	sender  Sender
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sender Sender, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan job, numWorkers),
		sender:  sender,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan job, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. ctx is handed to every Send; it is
// the process lifetime, not a request's. Stop cancels it when draining runs
// past its deadline.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue hands an event to the worker responsible for key. It never blocks:
// if that worker's buffer is full, or the dispatcher is stopped, the event is
// dropped and false is returned.
func (d *Dispatcher) Enqueue(key string, event domain.ChangeEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn().Str("event_id", event.ID).Msg("dispatcher stopped, dropping event")
		return false
	}

	idx := d.shardIndex(key)
	select {
	case d.workers[idx] <- job{key: key, event: event}:
		metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return true
	default:
		metrics.NotificationFailuresTotal.WithLabelValues("queue_full").Inc()
		d.log.Error().
			Str("event_id", event.ID).
			Str("method", string(event.Method)).
			Int("worker_id", idx).
			Msg("notification queue full, dropping event")
		return false
	}
}

// Stop rejects new events and lets workers drain what is already queued. If
// ctx ends first, the workers' context is cancelled, the events still queued
// are dropped and counted, and ctx's error is returned.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	cancel := d.cancel
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if cancel != nil {
			cancel()
		}
		return nil
	case <-ctx.Done():
	}

	if cancel != nil {
		cancel()
	}
	dropped := 0
	for _, ch := range d.workers {
		dropped += len(ch)
	}
	metrics.NotificationFailuresTotal.WithLabelValues("shutdown").Add(float64(dropped))
	d.log.Warn().Int("dropped", dropped).Msg("dispatcher stop deadline exceeded, dropping queued events")
	return fmt.Errorf("dispatcher stop: %w", ctx.Err())
}

// shardIndex maps a key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan job) {
	defer d.wg.Done()
	label := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-ch:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			metrics.NotificationQueueDepth.WithLabelValues(label).Set(float64(len(ch)))
			if err := d.sender.Send(ctx, j.event); err != nil {
				d.log.Error().Err(err).
					Str("order_id", j.key).
					Str("event_id", j.event.ID).
					Str("method", string(j.event.Method)).
					Int("worker_id", id).
					Msg("notification delivery failed")
			}
		}
	}
}
