package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"guidebook/internal/cache"
	"guidebook/internal/database"
	"guidebook/internal/handlers"
	"guidebook/internal/middleware"
	"guidebook/internal/router"
	"guidebook/internal/store"
	"guidebook/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

// runServe connects to the backing services, serves the API and drains
// in-flight requests once ctx is cancelled.
func runServe(ctx context.Context) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	if cfg.IsDev() {
		if err := database.Seed(ctx, db); err != nil {
			return err
		}
	}

	// Valkey is optional: without it the tree cache is disabled and rate
	// limiting falls back to process memory.
	var valkey *redis.Client
	if cfg.ValkeyEnabled() {
		valkey, err = cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword, cfg.ValkeyDB)
		if err != nil {
			return err
		}
		defer valkey.Close()
	} else {
		slog.Warn("valkey not configured, tree cache disabled")
	}

	var limiter middleware.Limiter
	switch {
	case cfg.RateLimitPerMinute == 0:
		slog.Warn("rate limiting disabled")
	case valkey != nil:
		limiter = middleware.NewRedisLimiter(valkey, cfg.RateLimitPerMinute)
	default:
		mem := middleware.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
		defer mem.Stop()
		limiter = mem
	}

	telemetry.StartDBStatsCollector(ctx, db)

	modules := store.NewModuleStore(db)
	categories := store.NewCategoryStore(db)
	contents := store.NewContentStore(db)
	trees := cache.NewTreeCache(valkey, cfg.TreeCacheTTL)
	// Trees cached by a previous process may predate migrations or seeding.
	trees.InvalidateAll(ctx)
	expose := !cfg.IsProduction()

	r := router.New(router.Deps{
		Health:         handlers.NewHealth(db, cfg.Env, cfg.APIBaseURL),
		Modules:        handlers.NewModules(modules, expose),
		Categories:     handlers.NewCategories(categories, modules, contents, trees, expose),
		Contents:       handlers.NewContents(contents, categories, expose),
		Limiter:        limiter,
		AllowedOrigins: cfg.AllowedOrigins(),
		ExposeErrors:   expose,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
