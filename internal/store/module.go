package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"guidebook/internal/models"
)

// ModuleStore handles module database operations.
type ModuleStore struct {
	db *sql.DB
}

// NewModuleStore creates a new ModuleStore.
func NewModuleStore(db *sql.DB) *ModuleStore {
	return &ModuleStore{db: db}
}

var moduleColumns = []string{"id", "name", "slug", "icon", "order_index", "is_active", "created_at"}

func scanModule(s scanner) (*models.Module, error) {
	var m models.Module
	if err := s.Scan(&m.ID, &m.Name, &m.Slug, &m.Icon, &m.OrderIndex, &m.IsActive, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListActive returns active modules ordered by order_index.
func (s *ModuleStore) ListActive(ctx context.Context) ([]models.Module, error) {
	query, args, err := psql.Select(moduleColumns...).
		From("modules").
		Where(sq.Eq{"is_active": true}).
		OrderBy("order_index ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list modules: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list modules: %w", err)
	}
	defer rows.Close()

	items := []models.Module{}
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		items = append(items, *m)
	}
	return items, rows.Err()
}

// FindActiveByID returns an active module, or nil if it is absent or inactive.
func (s *ModuleStore) FindActiveByID(ctx context.Context, id int64) (*models.Module, error) {
	query, args, err := psql.Select(moduleColumns...).
		From("modules").
		Where(sq.Eq{"id": id, "is_active": true}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find module: %w", err)
	}

	m, err := scanModule(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find module by id: %w", err)
	}
	return m, nil
}

// Create inserts a module. A duplicate slug returns ErrConflict.
func (s *ModuleStore) Create(ctx context.Context, m *models.Module) (*models.Module, error) {
	query, args, err := psql.Insert("modules").
		Columns("name", "slug", "icon", "order_index", "is_active").
		Values(m.Name, m.Slug, m.Icon, m.OrderIndex, m.IsActive).
		Suffix("RETURNING id, name, slug, icon, order_index, is_active, created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build create module: %w", err)
	}

	created, err := scanModule(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "create module")
	}
	return created, nil
}

// SlugTaken reports whether any module already uses slug.
func (s *ModuleStore) SlugTaken(ctx context.Context, slug string) (bool, error) {
	found, err := exists(ctx, s.db, psql.Select("1").From("modules").Where(sq.Eq{"slug": slug}))
	if err != nil {
		return false, fmt.Errorf("check module slug: %w", err)
	}
	return found, nil
}

// Count returns the number of modules, active or not.
func (s *ModuleStore) Count(ctx context.Context) (int, error) {
	n, err := count(ctx, s.db, "modules", sq.Expr("TRUE"))
	if err != nil {
		return 0, fmt.Errorf("count modules: %w", err)
	}
	return n, nil
}
