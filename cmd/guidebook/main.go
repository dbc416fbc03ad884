// Package main is the entry point for the guidebook API. The root command
// serves HTTP; migrate and seed manage the database.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"guidebook/internal/config"
	"guidebook/internal/database"
	"guidebook/internal/logging"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Running the binary without a
// subcommand starts the server.
func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "guidebook",
		Short: "Guidebook CMS admin API",
		Long: `Guidebook serves the admin REST API for modules, categories and contents.

Subcommands:
  serve    - Start the HTTP server (default)
  migrate  - Apply, roll back or list database migrations
  seed     - Insert the default modules into an empty database`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(newServeCmd(), newMigrateCmd(), newSeedCmd())
	return root
}

// setup loads configuration and installs the default logger.
func setup() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	logging.New(cfg.LogLevel, cfg.ResolvedLogFormat())
	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())
	return cfg, nil
}

// withDB runs fn against a fresh database connection.
func withDB(ctx context.Context, fn func(ctx context.Context, cfg *config.Config, db *sql.DB) error) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	db, err := database.Connect(ctx, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, cfg, db)
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the default modules when none exist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, _ *config.Config, db *sql.DB) error {
				return database.Seed(ctx, db)
			})
		},
	}
}
