package hub

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/orderdesk/orderdesk/internal/api"
	"github.com/orderdesk/orderdesk/internal/api/handler"
	"github.com/orderdesk/orderdesk/internal/api/middleware"
	"github.com/orderdesk/orderdesk/internal/core/domain"
	"github.com/orderdesk/orderdesk/internal/core/ports"
	"github.com/orderdesk/orderdesk/internal/pkg/metrics"
)

// ServiceName is reported by the hub's health endpoint.
const ServiceName = "notification-hub"

const (
	defaultInvokeRate  rate.Limit = 10
	defaultInvokeBurst            = 20
)

// Deduper recognises event ids that were already published. Claim returns
// false for an id seen before; Release forgets an id whose publish failed.
type Deduper interface {
	Claim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

type ServerConfig struct {
	InternalAPIKey string
	RequireAuth    bool
	AllowedOrigins []string
	InvokeRate     rate.Limit
	InvokeBurst    int
}

// Server exposes the hub over HTTP: websocket clients and the trusted
// broadcast ingress.
type Server struct {
	hub      *Hub
	tokens   ports.TokenValidator
	dedup    Deduper
	cfg      ServerConfig
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

// NewServer wires a Server. dedup may be nil, in which case every broadcast
// is published.
func NewServer(h *Hub, tokens ports.TokenValidator, dedup Deduper, cfg ServerConfig, log zerolog.Logger) *Server {
	if cfg.InvokeRate <= 0 {
		cfg.InvokeRate = defaultInvokeRate
	}
	if cfg.InvokeBurst <= 0 {
		cfg.InvokeBurst = defaultInvokeBurst
	}
	s := &Server{hub: h, tokens: tokens, dedup: dedup, cfg: cfg, log: log}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// Connect upgrades GET /hubs/notifications to a websocket and serves the
// client until it disconnects.
func (s *Server) Connect(c echo.Context) error {
	var principal *domain.Principal
	if raw := middleware.TokenFromRequest(c.Request(), true); raw != "" {
		p, err := s.tokens.ValidateToken(raw)
		if err != nil {
			s.log.Warn().Err(err).Msg("rejecting hub connection with invalid token")
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}
		principal = p
	}
	if principal == nil && s.cfg.RequireAuth {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return nil
	}

	cl := newClient(s.hub, conn, principal, rate.NewLimiter(s.cfg.InvokeRate, s.cfg.InvokeBurst), s.log)
	s.hub.Register(cl)
	go cl.writePump()
	cl.readPump()
	return nil
}

type broadcastResponse struct {
	Status    string `json:"status"`
	EventID   string `json:"eventId,omitempty"`
	Delivered int    `json:"delivered"`
	Group     int    `json:"group"`
	Everyone  int    `json:"everyone"`
}

// Broadcast godoc
// @Summary      Publish a change event to connected clients
// @Tags         hub
// @Accept       json
// @Produce      json
// @Param        X-Internal-Api-Key  header  string              false  "shared secret"
// @Param        body                body    domain.ChangeEvent  true   "event"
// @Success      200  {object}  broadcastResponse
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/broadcast [post]
func (s *Server) Broadcast(c echo.Context) error {
	var evt domain.ChangeEvent
	if err := c.Bind(&evt); err != nil {
		metrics.HubBroadcastsTotal.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&evt); err != nil {
		metrics.HubBroadcastsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	ctx := c.Request().Context()
	claimed := false
	if s.dedup != nil && evt.ID != "" {
		fresh, err := s.dedup.Claim(ctx, evt.ID)
		switch {
		case err != nil:
			s.log.Warn().Err(err).Str("event_id", evt.ID).Msg("dedup unavailable, publishing anyway")
		case !fresh:
			metrics.HubBroadcastsTotal.WithLabelValues("duplicate").Inc()
			return c.JSON(http.StatusOK, broadcastResponse{Status: "duplicate", EventID: evt.ID})
		default:
			claimed = true
		}
	}

	d, err := s.hub.Publish(evt)
	if err != nil {
		if claimed {
			if rerr := s.dedup.Release(ctx, evt.ID); rerr != nil {
				s.log.Warn().Err(rerr).Str("event_id", evt.ID).Msg("release dedup claim")
			}
		}
		metrics.HubBroadcastsTotal.WithLabelValues("invalid").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	metrics.HubBroadcastsTotal.WithLabelValues("delivered").Inc()
	s.log.Debug().
		Str("event_id", evt.ID).
		Str("method", string(evt.Method)).
		Str("group", evt.Group).
		Int("group_deliveries", len(d.Group)).
		Int("everyone_deliveries", len(d.Everyone)).
		Msg("event published")

	return c.JSON(http.StatusOK, broadcastResponse{
		Status:    "delivered",
		EventID:   evt.ID,
		Delivered: d.Size(),
		Group:     len(d.Group),
		Everyone:  len(d.Everyone),
	})
}

// unauthorizedCounter counts 401s from the internal key check.
func unauthorizedCounter(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		err := next(c)
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Code == http.StatusUnauthorized {
			metrics.HubBroadcastsTotal.WithLabelValues("unauthorized").Inc()
		}
		return err
	}
}

// NewRouter builds the hub's echo instance.
func NewRouter(s *Server, checks map[string]handler.Check, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = api.NewHTTPErrorHandler(log)

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     s.cfg.AllowedOrigins,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization, middleware.InternalAPIKeyHeader},
		AllowCredentials: true,
	}))
	e.Use(metrics.Middleware())

	health := handler.NewHealthHandler(ServiceName, checks)
	e.GET("/health", health.Liveness)
	e.GET("/health/ready", health.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	e.GET("/hubs/notifications", s.Connect)
	e.POST("/api/broadcast", s.Broadcast, unauthorizedCounter, middleware.InternalAPIKey(s.cfg.InternalAPIKey))

	return e
}
