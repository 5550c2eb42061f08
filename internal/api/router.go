package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/orderdesk/orderdesk/docs"
	"github.com/orderdesk/orderdesk/internal/api/handler"
	"github.com/orderdesk/orderdesk/internal/api/middleware"
	"github.com/orderdesk/orderdesk/internal/core/ports"
	"github.com/orderdesk/orderdesk/internal/pkg/metrics"
)

// RouterConfig carries what NewRouter wires together.
type RouterConfig struct {
	GraphQL        *handler.GraphQLHandler
	Health         *handler.HealthHandler
	Tokens         ports.TokenValidator
	AllowedOrigins []string
	Log            zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(cfg RouterConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(cfg.Log))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))
	e.Use(metrics.Middleware())

	// --- Health checks and tooling (no auth) ---
	e.GET("/health", cfg.Health.Liveness)
	e.GET("/health/ready", cfg.Health.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Operations ---
	identity := middleware.Identity(cfg.Tokens, cfg.Log)
	e.POST("/graphql", cfg.GraphQL.Execute, identity)
	e.GET("/graphql", cfg.GraphQL.Info)

	return e
}
