package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// defaultModules are the navigation tabs a fresh development database
// starts with.
var defaultModules = []struct {
	Name string
	Slug string
	Icon string
}{
	{Name: "Getting Started", Slug: "getting-started", Icon: "rocket"},
	{Name: "User Guide", Slug: "user-guide", Icon: "book-open"},
	{Name: "Administration", Slug: "administration", Icon: "settings"},
}

// Seed populates the database with initial development data.
// It creates the default modules only when the modules table is empty.
func Seed(ctx context.Context, db *sql.DB) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM modules").Scan(&count); err != nil {
		return fmt.Errorf("seed check modules: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	for i, m := range defaultModules {
		_, err := db.ExecContext(ctx, `
			INSERT INTO modules (name, slug, icon, order_index, is_active)
			VALUES ($1, $2, $3, $4, TRUE)
		`, m.Name, m.Slug, m.Icon, i)
		if err != nil {
			return fmt.Errorf("seed insert module %s: %w", m.Slug, err)
		}
	}

	slog.Info("database seeded with default modules", "count", len(defaultModules))
	return nil
}
