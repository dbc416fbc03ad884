// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"guidebook/internal/models"
	"guidebook/internal/ordering"
)

// CategoryStore manages categories in the database.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

var categoryColumns = []string{
	"c.id", "c.module_id", "c.parent_id", "c.title", "c.slug", "c.description",
	"c.order_index", "c.is_active", "c.created_at", "c.updated_at",
}

// scanCategory scans the base category columns followed by extra targets.
func scanCategory(s scanner, extra ...any) (*models.Category, error) {
	var c models.Category
	dest := []any{
		&c.ID, &c.ModuleID, &c.ParentID, &c.Title, &c.Slug, &c.Description,
		&c.OrderIndex, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &c, nil
}

// List returns the categories of a module in tree-assembly order: roots
// first, then by order_index. Inactive rows are skipped unless
// includeInactive is set.
func (s *CategoryStore) List(ctx context.Context, moduleID int64, includeInactive bool) ([]models.Category, error) {
	where := sq.And{sq.Eq{"c.module_id": moduleID}}
	if !includeInactive {
		where = append(where, sq.Eq{"c.is_active": true})
	}

	query, args, err := psql.Select(append(categoryColumns, "parent.title")...).
		From("categories c").
		LeftJoin("categories parent ON parent.id = c.parent_id").
		Where(where).
		OrderBy("c.parent_id ASC NULLS FIRST", "c.order_index ASC", "c.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list categories: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	items := []models.Category{}
	for rows.Next() {
		var parentTitle sql.NullString
		c, err := scanCategory(rows, &parentTitle)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		if parentTitle.Valid {
			c.ParentTitle = &parentTitle.String
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// FindByID retrieves a category with its module name and parent title.
// Returns nil if not found.
func (s *CategoryStore) FindByID(ctx context.Context, id int64) (*models.Category, error) {
	query, args, err := psql.Select(append(categoryColumns, "m.name", "parent.title")...).
		From("categories c").
		Join("modules m ON m.id = c.module_id").
		LeftJoin("categories parent ON parent.id = c.parent_id").
		Where(sq.Eq{"c.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find category: %w", err)
	}

	var moduleName string
	var parentTitle sql.NullString
	c, err := scanCategory(s.db.QueryRowContext(ctx, query, args...), &moduleName, &parentTitle)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find category by id: %w", err)
	}
	c.ModuleName = &moduleName
	if parentTitle.Valid {
		c.ParentTitle = &parentTitle.String
	}
	return c, nil
}

// Create inserts a new category and returns it.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	query, args, err := psql.Insert("categories").
		Columns("module_id", "parent_id", "title", "slug", "description", "order_index", "is_active").
		Values(c.ModuleID, c.ParentID, c.Title, c.Slug, c.Description, c.OrderIndex, c.IsActive).
		Suffix("RETURNING id, module_id, parent_id, title, slug, description, order_index, is_active, created_at, updated_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build create category: %w", err)
	}

	created, err := scanCategory(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "create category")
	}
	return created, nil
}

// Update writes every editable column of c.
func (s *CategoryStore) Update(ctx context.Context, c *models.Category) error {
	query, args, err := psql.Update("categories").
		Set("module_id", c.ModuleID).
		Set("parent_id", c.ParentID).
		Set("title", c.Title).
		Set("slug", c.Slug).
		Set("description", c.Description).
		Set("order_index", c.OrderIndex).
		Set("is_active", c.IsActive).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": c.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update category: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err, "update category")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update category %d: %w", c.ID, ErrNotFound)
	}
	return nil
}

// Delete removes a category by ID. Callers enforce the child and content
// guards; the foreign keys reject anything they miss.
func (s *CategoryStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete category")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete category %d: %w", id, ErrNotFound)
	}
	return nil
}

// SlugTaken reports whether slug is used by another category of the module.
// excludeID (0 for none) lets an update keep its own slug.
func (s *CategoryStore) SlugTaken(ctx context.Context, moduleID int64, slug string, excludeID int64) (bool, error) {
	where := sq.And{sq.Eq{"module_id": moduleID, "slug": slug}}
	if excludeID != 0 {
		where = append(where, sq.NotEq{"id": excludeID})
	}
	found, err := exists(ctx, s.db, psql.Select("1").From("categories").Where(where))
	if err != nil {
		return false, fmt.Errorf("check category slug: %w", err)
	}
	return found, nil
}

// siblingGroup selects the categories sharing parentID within a module.
func siblingGroup(moduleID int64, parentID *int64) sq.Sqlizer {
	if parentID == nil {
		return sq.And{sq.Eq{"module_id": moduleID}, sq.Expr("parent_id IS NULL")}
	}
	return sq.Eq{"module_id": moduleID, "parent_id": *parentID}
}

// NextOrderIndex returns the order_index that appends a category to the end
// of its sibling group.
func (s *CategoryStore) NextOrderIndex(ctx context.Context, moduleID int64, parentID *int64) (int, error) {
	next, err := nextOrderIndex(ctx, s.db, "categories", siblingGroup(moduleID, parentID))
	if err != nil {
		return 0, fmt.Errorf("next category order: %w", err)
	}
	return next, nil
}

// CountActiveChildren returns how many active categories name id as parent.
func (s *CategoryStore) CountActiveChildren(ctx context.Context, id int64) (int, error) {
	n, err := count(ctx, s.db, "categories", sq.Eq{"parent_id": id, "is_active": true})
	if err != nil {
		return 0, fmt.Errorf("count active children: %w", err)
	}
	return n, nil
}

// CountChildren returns how many categories name id as parent.
func (s *CategoryStore) CountChildren(ctx context.Context, id int64) (int, error) {
	n, err := count(ctx, s.db, "categories", sq.Eq{"parent_id": id})
	if err != nil {
		return 0, fmt.Errorf("count children: %w", err)
	}
	return n, nil
}

// Move swaps a category with its neighbour among its siblings.
func (s *CategoryStore) Move(ctx context.Context, id int64, dir ordering.Direction) error {
	var moduleID int64
	var parentID *int64
	err := s.db.QueryRowContext(ctx,
		`SELECT module_id, parent_id FROM categories WHERE id = $1`, id,
	).Scan(&moduleID, &parentID)
	if err != nil {
		return mapError(err, "find category to move")
	}

	if err := moveInGroup(ctx, s.db, "categories", siblingGroup(moduleID, parentID), id, dir); err != nil {
		return fmt.Errorf("move category %d: %w", id, err)
	}
	return nil
}
