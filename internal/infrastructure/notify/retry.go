package notify

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/orderdesk/orderdesk/internal/pkg/metrics"
)

const (
	defaultMaxRetries = 3
	defaultBaseDelay  = time.Second
)

// RetryConfig controls delivery retries. The delay before retry n (1-based)
// is BaseDelay × 2^n, so the defaults wait 2s, 4s and 8s.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// Retrier runs an operation once and then up to MaxRetries more times while it
// keeps failing with a transient error.
type Retrier struct {
	cfg  RetryConfig
	wait func(ctx context.Context, d time.Duration) error
	log  zerolog.Logger
}

func NewRetrier(cfg RetryConfig, log zerolog.Logger) *Retrier {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = defaultBaseDelay
	}
	return &Retrier{cfg: cfg, wait: sleep, log: log}
}

// Delay returns the wait before retry n.
func (r *Retrier) Delay(n int) time.Duration {
	return r.cfg.BaseDelay * time.Duration(1<<n)
}

// Do returns nil on the first success, the permanent error as soon as one
// occurs, or the last transient error once retries are exhausted.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.Delay(attempt)
			metrics.NotificationRetriesTotal.Inc()
			r.log.Warn().Err(lastErr).
				Int("retry", attempt).
				Dur("delay", delay).
				Msg("retrying hub delivery")
			if err := r.wait(ctx, delay); err != nil {
				return err
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsTransient(err) {
			return &PermanentError{Err: err}
		}
	}
	return &ExhaustedError{Err: lastErr, Attempts: r.cfg.MaxRetries + 1}
}

// PermanentError is returned when an attempt failed in a way retrying cannot
// fix.
type PermanentError struct{ Err error }

func (e *PermanentError) Error() string { return "permanent failure: " + e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// ExhaustedError is returned after every attempt failed transiently.
type ExhaustedError struct {
	Err      error
	Attempts int
}

func (e *ExhaustedError) Error() string { return "retries exhausted: " + e.Err.Error() }
func (e *ExhaustedError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a network failure, a timeout or an HTTP
// status worth retrying (408, 429, 5xx).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusRequestTimeout ||
			se.Code == http.StatusTooManyRequests ||
			se.Code >= http.StatusInternalServerError
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var oe *net.OpError
	return errors.As(err, &oe)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
