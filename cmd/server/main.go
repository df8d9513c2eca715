package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"gimp-server/contract"
	"gimp-server/infrastructure/httpapi"
	"gimp-server/internal"
	"gimp-server/repositories"
	"gimp-server/runtime"
	"gimp-server/runtime/workers"
	"gimp-server/services"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 5 * time.Second

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so 'defer' statements (like database
// cleanup) execute before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)
	ctx := context.Background()

	// 2. Persistence (BadgerDB), optional
	var snapshots contract.ISnapshotRepository
	if config.PersistenceEnabled {
		db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
		if err != nil {
			return exitRuntime, fmt.Errorf("database opening failed: %w", err)
		}
		defer func() {
			// Defer ensures the database lock is released and buffers are flushed.
			logger.Info("Closing BadgerDB...")
			_ = db.Close()
		}()
		snapshots = repositories.NewSnapshotRepository(db, logger)
	}

	// 3. Core components
	supervisor := workers.NewSupervisor(logger)
	registry := runtime.NewRegistry()
	store := runtime.NewGroupStore(logger)
	orchestrator := runtime.NewOrchestrator(
		logger, supervisor, registry, store, snapshots,
		config.BufferSize,
		config.IdleWindow(), config.SnapshotInterval, config.SinkTimeout,
	)

	// 4. Startup rehydration. A missing or corrupt snapshot is fatal
	// before the listener binds; the process never starts with an
	// unknown registry. A fresh install runs with persistence disabled
	// once to seed the first snapshot.
	if config.PersistenceEnabled {
		snapshot, err := snapshots.Load()
		if err != nil {
			return exitRuntime, fmt.Errorf("startup restore failed: %w", err)
		}
		if err := orchestrator.Rehydrate(snapshot); err != nil {
			return exitRuntime, fmt.Errorf("startup restore failed: %w", err)
		}
	}

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Error (HTTP & Orchestrator)
	errChan := make(chan error, 2)

	go func() {
		logger.Info("Starting orchestrator...")
		if err := orchestrator.Start(ctx); err != nil {
			errChan <- fmt.Errorf("orchestrator error: %w", err)
		}
	}()

	// 6. HTTP server
	groupService := services.NewGroupService(orchestrator)
	api := httpapi.NewServer(logger, groupService, config.ConnectionBufferSize, !config.DisableSocket)
	address := fmt.Sprintf("0.0.0.0:%d", config.Port)
	httpServer := &http.Server{Addr: address, Handler: api.Handler()}

	go func() {
		logger.Info("Starting HTTP server", "address", address, "socket_enabled", !config.DisableSocket)
		if err := httpServer.ListenAndServe(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. Wait for Stop or Error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Final Cleanup (Graceful Shutdown)
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	orchestrator.Stop()
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG)
	} else {
		options = options.WithLoggingLevel(badger.WARNING)
	}
	return options
}
