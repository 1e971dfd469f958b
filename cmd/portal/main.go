package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/mentor-portal/internal/api/http"
	"github.com/spec-kit/mentor-portal/internal/api/http/handlers"
	"github.com/spec-kit/mentor-portal/internal/auth"
	"github.com/spec-kit/mentor-portal/internal/config"
	"github.com/spec-kit/mentor-portal/internal/events"
	"github.com/spec-kit/mentor-portal/internal/gateway"
	"github.com/spec-kit/mentor-portal/internal/observability"
	"github.com/spec-kit/mentor-portal/internal/service"
	"github.com/spec-kit/mentor-portal/internal/session"
	"github.com/spec-kit/mentor-portal/internal/tokenstore"
	"github.com/spec-kit/mentor-portal/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storage, err := tokenstore.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open token storage", zap.Error(err))
	}
	defer storage.Close()

	metrics := observability.NewMetrics()
	client := gateway.NewClient(cfg.Gateway.BaseURL, logger,
		gateway.WithMetrics(metrics),
		gateway.WithTimeout(cfg.Gateway.Timeout()),
	)

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartSessionAuditWorker(service.NewSessionAuditService(dispatcher, logger))

	authService := service.NewAuthService(client, logger)
	sessions := session.NewStore(authService, storage.Store,
		session.WithDispatcher(dispatcher),
		session.WithLogger(logger),
	)
	if err := sessions.InitializeAuth(ctx); err != nil {
		logger.Warn("initial session load failed", zap.Error(err))
	}

	guard := auth.NewGuard(sessions,
		auth.WithFallbackPath(cfg.Guard.FallbackPath),
		auth.WithGuardLogger(logger),
		auth.WithGuardMetrics(metrics),
	)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Check{
			"gateway": client.Ping,
			"storage": storage.Ping,
		}),
		Auth:            handlers.NewAuthHandler(sessions),
		Dashboard:       handlers.NewDashboardHandler(sessions),
		Profile:         handlers.NewProfileHandler(sessions, service.NewCustomerService(client)),
		GuardMiddleware: auth.NewGuardMiddleware(guard, logger, cfg.Guard.LoadingTimeout()),
		Metrics:         metrics,
	})

	go func() {
		logger.Info("portal listening", zap.String("addr", cfg.App.Addr()), zap.String("gateway", client.BaseURL()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
