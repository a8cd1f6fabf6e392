package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/terra-clan/survey-tracker/internal/api"
	"github.com/terra-clan/survey-tracker/internal/catalog"
	"github.com/terra-clan/survey-tracker/internal/cleanup"
	"github.com/terra-clan/survey-tracker/internal/config"
	"github.com/terra-clan/survey-tracker/internal/progress"
	"github.com/terra-clan/survey-tracker/internal/services"
	"github.com/terra-clan/survey-tracker/internal/session"
	"github.com/terra-clan/survey-tracker/internal/storage"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.Level,
	}))
	slog.SetDefault(logger)

	slog.Info("starting survey-tracker",
		"version", version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"backend", cfg.Session.Backend,
	)

	// Load the question catalog
	cat, err := catalog.Load(cfg.Catalog.File)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	// Create context for initialization
	initCtx, initCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer initCancel()

	// Open the session store
	store, err := storage.Open(initCtx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("session store close error", "error", err)
		}
	}()

	// Initialize service registry
	registry, closeProviders, err := newRegistry(cfg, store)
	if err != nil {
		return err
	}
	defer closeProviders()

	tracker := progress.NewTracker(cat, store)
	sessions := session.NewManager(session.Options{
		Secret:     cfg.Session.Secret,
		CookieName: cfg.Session.CookieName,
		TTL:        cfg.Session.TTL,
		Secure:     cfg.Session.Secure,
	})

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start cleanup worker for stores that do not expire records themselves
	var cleanerDone <-chan struct{}
	if sweeper, ok := store.(storage.Sweeper); ok {
		cleanerDone = cleanup.NewCleaner(sweeper, cfg.Cleanup.Interval).Start(ctx)
	}

	// Setup HTTP server
	server := api.NewServer(cfg.Server, tracker, sessions, registry)
	httpServer := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     server.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
	case err, ok := <-serverErr:
		if ok {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	slog.Info("shutting down gracefully...")

	// Cancel context to stop background workers
	cancel()
	if cleanerDone != nil {
		<-cleanerDone
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("survey-tracker stopped")
	return nil
}

// newRegistry registers readiness checks for the store and its backing service
func newRegistry(cfg *config.Config, store storage.SessionStore) (*services.Registry, func(), error) {
	registry := services.NewRegistry()
	registry.Register("store", services.NewPingChecker(cfg.Session.Backend, store))

	var closers []func() error
	switch cfg.Session.Backend {
	case config.BackendPostgres:
		postgresProvider, err := services.NewPostgresProvider(cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create postgres provider: %w", err)
		}
		registry.Register("postgres", postgresProvider)
		closers = append(closers, postgresProvider.Close)
	case config.BackendRedis:
		redisProvider := services.NewRedisProvider(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		registry.Register("redis", redisProvider)
		closers = append(closers, redisProvider.Close)
	}

	return registry, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				slog.Error("provider close error", "error", err)
			}
		}
	}, nil
}
