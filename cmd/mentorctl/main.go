package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spec-kit/mentor-portal/internal/auth"
	"github.com/spec-kit/mentor-portal/internal/cli"
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
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Storage.Driver == config.StorageDriverMemory {
		return fmt.Errorf("STORAGE_DRIVER=memory cannot keep a session between mentorctl runs")
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App, "stderr")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storage, err := tokenstore.Open(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open token storage: %w", err)
	}
	defer storage.Close()

	client := gateway.NewClient(cfg.Gateway.BaseURL, logger, gateway.WithTimeout(cfg.Gateway.Timeout()))

	dispatcher := events.NewInMemoryDispatcher()
	worker.StartSessionAuditWorker(service.NewSessionAuditService(dispatcher, logger))

	sessions := session.NewStore(service.NewAuthService(client, logger), storage.Store,
		session.WithDispatcher(dispatcher),
		session.WithLogger(logger),
	)

	root := cli.NewRootCommand(cli.Deps{
		Sessions:  sessions,
		Customers: service.NewCustomerService(client),
		Guard:     auth.NewGuard(sessions, auth.WithGuardLogger(logger)),
	})
	root.SilenceErrors = true
	return root.ExecuteContext(ctx)
}
