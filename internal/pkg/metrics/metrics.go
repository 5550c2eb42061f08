// Package metrics defines and registers all custom Prometheus metrics for the
// order API and the notification hub. It is the single source of truth for
// metric names, labels, and help strings.
//
// Metrics are registered with the default registry on package init via
// promauto; both processes expose them on GET /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "orderdesk"

// ── Order metrics ─────────────────────────────────────────────────────────────

// OrderMutationsTotal counts committed order mutations.
// Label:
//   - operation: "create", "update", "delete", "add_item", "remove_item"
var OrderMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_mutations_total",
		Help:      "Total number of committed order mutations, by operation.",
	},
	[]string{"operation"},
)

// ── Notification metrics ──────────────────────────────────────────────────────

// NotificationsSentTotal counts change events accepted by the hub.
// Label:
//   - method: "OrderCreated", "OrderUpdated", "OrderDeleted"
var NotificationsSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Total number of change events delivered to the hub.",
	},
	[]string{"method"},
)

// NotificationFailuresTotal counts change events that were given up on.
// Label:
//   - reason: "exhausted", "permanent", "queue_full", "encode"
var NotificationFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_failures_total",
		Help:      "Total number of change events that could not be delivered.",
	},
	[]string{"reason"},
)

// NotificationRetriesTotal counts retry attempts after a transient failure.
var NotificationRetriesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notification_retries_total",
		Help:      "Total number of delivery retries after transient failures.",
	},
)

// NotificationQueueDepth tracks pending events per dispatcher worker.
// Label:
//   - worker_id: numeric worker index (e.g. "0", "1", …)
var NotificationQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "notification_queue_depth",
		Help:      "Current number of change events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// ── Hub metrics ───────────────────────────────────────────────────────────────

// HubConnections is the number of currently registered websocket clients.
var HubConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "hub_connections",
		Help:      "Number of websocket connections registered with the hub.",
	},
)

// HubDeliveriesTotal counts frames handed to connections.
// Label:
//   - list: "group" (group members) or "everyone" (global fan-out)
var HubDeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hub_deliveries_total",
		Help:      "Total number of event frames queued to connections, by delivery list.",
	},
	[]string{"list"},
)

// HubBroadcastsTotal counts ingress requests on /api/broadcast.
// Label:
//   - result: "delivered", "duplicate", "unauthorized", "invalid"
var HubBroadcastsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hub_broadcasts_total",
		Help:      "Total number of broadcast requests received by the hub, by result.",
	},
	[]string{"result"},
)

// HubSlowConsumersTotal counts connections dropped because their send buffer
// was full.
var HubSlowConsumersTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "hub_slow_consumers_total",
		Help:      "Total number of connections dropped for not keeping up with fan-out.",
	},
)

// ── HTTP metrics ──────────────────────────────────────────────────────────────

// HTTPRequestDuration measures request latency.
// Labels:
//   - method, route (the registered path, not the raw URL), code
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests by method, route and status code.",
		Buckets:   prometheus.DefBuckets, // .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10
	},
	[]string{"method", "route", "code"},
)

// Middleware records HTTPRequestDuration for every request.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			code := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					code = he.Code
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			HTTPRequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(code)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}
