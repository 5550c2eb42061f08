// Command hub runs the real-time notification hub.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orderdesk/orderdesk/internal/api/handler"
	"github.com/orderdesk/orderdesk/internal/core/service"
	"github.com/orderdesk/orderdesk/internal/hub"
	"github.com/orderdesk/orderdesk/internal/infrastructure/db/redis"
	"github.com/orderdesk/orderdesk/internal/pkg/config"
	"github.com/orderdesk/orderdesk/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "hub: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty || cfg.IsDevelopment(), Service: hub.ServiceName})

	tokens, err := service.NewTokenService(cfg.TokenConfig())
	if err != nil {
		return err
	}
	if cfg.Hub.InternalAPIKey == "" {
		log.Warn().Msg("HUB_INTERNAL_API_KEY is empty, broadcast endpoint is unauthenticated")
	}

	checks := map[string]handler.Check{}
	var dedup hub.Deduper
	if cfg.Redis.Addr != "" {
		rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()

		checker := redis.NewDedupChecker(rdb, 0)
		dedup = checker
		checks["redis"] = checker.Ping
		log.Info().Str("addr", cfg.Redis.Addr).Msg("broadcast dedup enabled")
	}

	h := hub.New(logger.Component("hub"))
	s := hub.NewServer(h, tokens, dedup, hub.ServerConfig{
		InternalAPIKey: cfg.Hub.InternalAPIKey,
		RequireAuth:    cfg.Hub.RequireAuth,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger.Component("hub"))

	srv := &http.Server{
		Addr:              ":" + cfg.HubPort,
		Handler:           hub.NewRouter(s, checks, logger.Component("http")),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Bool("require_auth", cfg.Hub.RequireAuth).Msg("notification hub listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	h.CloseAll()

	log.Info().Msg("notification hub stopped")
	return nil
}
