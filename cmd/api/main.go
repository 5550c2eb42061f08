// Command api serves the GraphQL order API.
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

	"github.com/rs/zerolog"

	"github.com/orderdesk/orderdesk/internal/api"
	"github.com/orderdesk/orderdesk/internal/api/graphql"
	"github.com/orderdesk/orderdesk/internal/api/handler"
	"github.com/orderdesk/orderdesk/internal/core/authz"
	"github.com/orderdesk/orderdesk/internal/core/ports"
	"github.com/orderdesk/orderdesk/internal/core/service"
	"github.com/orderdesk/orderdesk/internal/infrastructure/db/memory"
	"github.com/orderdesk/orderdesk/internal/infrastructure/db/mongo"
	"github.com/orderdesk/orderdesk/internal/infrastructure/db/seed"
	"github.com/orderdesk/orderdesk/internal/infrastructure/notify"
	"github.com/orderdesk/orderdesk/internal/infrastructure/queue"
	"github.com/orderdesk/orderdesk/internal/pkg/config"
	"github.com/orderdesk/orderdesk/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.LogPretty || cfg.IsDevelopment(), Service: "order-api"})

	tokens, err := service.NewTokenService(cfg.TokenConfig())
	if err != nil {
		return err
	}
	if cfg.JWT.SkipValidation {
		log.Warn().Msg("token validation disabled, trusting upstream gateway")
	}

	policy, err := authz.NewPolicy(cfg.AuthzPolicy)
	if err != nil {
		return err
	}

	users, orders, checks, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.SeedData {
		if err := seed.Run(ctx, users, orders, logger.Component("seed")); err != nil {
			return err
		}
	}

	// Notification workers outlive requests; they get their own context.
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()

	dispatcher := queue.NewDispatcher(cfg.Notify.Workers, newSender(cfg), logger.Component("dispatcher"))
	var notifier ports.Notifier = notify.Nop{}
	if cfg.Notify.Mode != notify.ModeNone {
		dispatcher.Start(workerCtx)
		notifier = notify.NewNotifier(dispatcher, logger.Component("notifier"))
	}

	authSvc := service.NewAuthService(users, tokens, logger.Component("auth"))
	orderSvc := service.NewOrderService(orders, users, policy, notifier, logger.Component("orders"))

	resolver := graphql.NewResolver(authSvc, orderSvc, logger.Component("resolver"))
	presenter := graphql.NewPresenter(cfg.IsDevelopment(), logger.Component("graphql"))
	exec, err := graphql.NewExecutor(resolver, presenter, logger.Component("graphql"))
	if err != nil {
		return fmt.Errorf("graphql schema: %w", err)
	}

	e := api.NewRouter(api.RouterConfig{
		GraphQL:        handler.NewGraphQLHandler(exec, logger.Component("graphql")),
		Health:         handler.NewHealthHandler("order-api", checks),
		Tokens:         tokens,
		AllowedOrigins: cfg.AllowedOrigins,
		Log:            logger.Component("http"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("store", cfg.Store).
			Str("authz_policy", policy.Name()).
			Str("notify_mode", cfg.Notify.Mode).
			Msg("order api listening")
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

	// Drain queued notifications within what is left of the shutdown budget.
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("notification drain")
	}
	cancelWorkers()

	log.Info().Msg("order api stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.UserRepository, ports.OrderRepository, map[string]handler.Check, func(), error) {
	if cfg.Store == "memory" {
		log.Warn().Msg("using in-memory store, data is lost on restart")
		s := memory.NewStore()
		return s.Users(), s.Orders(), map[string]handler.Check{"store": s.Ping}, func() {}, nil
	}

	client, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	closeFn := func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect")
		}
	}

	s := mongo.NewStore(db)
	if err := s.EnsureIndexes(ctx); err != nil {
		closeFn()
		return nil, nil, nil, nil, err
	}
	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
	return s.Users(), s.Orders(), map[string]handler.Check{"mongodb": s.Ping}, closeFn, nil
}

func newSender(cfg *config.Config) queue.Sender {
	if cfg.Notify.Mode == notify.ModeLog {
		return notify.NewLogSender(logger.Component("notifier"))
	}
	retrier := notify.NewRetrier(notify.RetryConfig{BaseDelay: cfg.Notify.RetryBase}, logger.Component("retry"))
	client := notify.NewHubClient(cfg.Hub.URL, cfg.Hub.InternalAPIKey, nil)
	return notify.NewHubSender(client, retrier, logger.Component("notifier"))
}
