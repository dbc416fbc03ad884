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

// SearchLimit caps the number of rows Search returns.
const SearchLimit = 20

// ContentStore handles all content-related database operations.
type ContentStore struct {
	db *sql.DB
}

// NewContentStore creates a new ContentStore with the given database connection.
func NewContentStore(db *sql.DB) *ContentStore {
	return &ContentStore{db: db}
}

var contentColumns = []string{
	"ct.id", "ct.category_id", "ct.title", "ct.html_content", "ct.plain_content",
	"ct.meta_description", "ct.featured_image", "ct.is_published", "ct.order_index",
	"ct.view_count", "ct.published_at", "ct.created_at", "ct.updated_at",
}

const contentReturning = "RETURNING id, category_id, title, html_content, plain_content, " +
	"meta_description, featured_image, is_published, order_index, view_count, " +
	"published_at, created_at, updated_at"

func scanContent(s scanner, extra ...any) (*models.Content, error) {
	var c models.Content
	dest := []any{
		&c.ID, &c.CategoryID, &c.Title, &c.HTMLContent, &c.PlainContent,
		&c.MetaDescription, &c.FeaturedImage, &c.IsPublished, &c.OrderIndex,
		&c.ViewCount, &c.PublishedAt, &c.CreatedAt, &c.UpdatedAt,
	}
	if err := s.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByCategory returns every content of a category, published or not,
// ordered by order_index.
func (s *ContentStore) ListByCategory(ctx context.Context, categoryID int64) ([]models.Content, error) {
	query, args, err := psql.Select(append(contentColumns, "c.title", "c.slug", "m.name")...).
		From("contents ct").
		Join("categories c ON c.id = ct.category_id").
		Join("modules m ON m.id = c.module_id").
		Where(sq.Eq{"ct.category_id": categoryID}).
		OrderBy("ct.order_index ASC", "ct.id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list contents: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contents: %w", err)
	}
	defer rows.Close()

	items := []models.Content{}
	for rows.Next() {
		var catTitle, catSlug, moduleName string
		c, err := scanContent(rows, &catTitle, &catSlug, &moduleName)
		if err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		c.CategoryTitle, c.CategorySlug, c.ModuleName = &catTitle, &catSlug, &moduleName
		items = append(items, *c)
	}
	return items, rows.Err()
}

// FindByID retrieves a content with its category and module labels.
// Returns nil if not found.
func (s *ContentStore) FindByID(ctx context.Context, id int64) (*models.Content, error) {
	query, args, err := psql.Select(append(contentColumns, "c.title", "c.slug", "m.name", "m.slug")...).
		From("contents ct").
		Join("categories c ON c.id = ct.category_id").
		Join("modules m ON m.id = c.module_id").
		Where(sq.Eq{"ct.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find content: %w", err)
	}

	var catTitle, catSlug, moduleName, moduleSlug string
	c, err := scanContent(s.db.QueryRowContext(ctx, query, args...), &catTitle, &catSlug, &moduleName, &moduleSlug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find content by id: %w", err)
	}
	c.CategoryTitle, c.CategorySlug = &catTitle, &catSlug
	c.ModuleName, c.ModuleSlug = &moduleName, &moduleSlug
	return c, nil
}

// IncrementViewCount bumps view_count by one and returns the new value.
func (s *ContentStore) IncrementViewCount(ctx context.Context, id int64) (int64, error) {
	var views int64
	err := s.db.QueryRowContext(ctx,
		`UPDATE contents SET view_count = view_count + 1 WHERE id = $1 RETURNING view_count`, id,
	).Scan(&views)
	if err != nil {
		return 0, mapError(err, "increment view count")
	}
	return views, nil
}

// Create inserts a new content and returns it.
func (s *ContentStore) Create(ctx context.Context, c *models.Content) (*models.Content, error) {
	query, args, err := psql.Insert("contents").
		Columns("category_id", "title", "html_content", "plain_content", "meta_description",
			"featured_image", "is_published", "order_index", "published_at").
		Values(c.CategoryID, c.Title, c.HTMLContent, c.PlainContent, c.MetaDescription,
			c.FeaturedImage, c.IsPublished, c.OrderIndex, c.PublishedAt).
		Suffix(contentReturning).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build create content: %w", err)
	}

	created, err := scanContent(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "create content")
	}
	return created, nil
}

// Update writes every editable column of c and returns the stored row.
func (s *ContentStore) Update(ctx context.Context, c *models.Content) (*models.Content, error) {
	query, args, err := psql.Update("contents").
		Set("category_id", c.CategoryID).
		Set("title", c.Title).
		Set("html_content", c.HTMLContent).
		Set("plain_content", c.PlainContent).
		Set("meta_description", c.MetaDescription).
		Set("featured_image", c.FeaturedImage).
		Set("is_published", c.IsPublished).
		Set("order_index", c.OrderIndex).
		Set("published_at", c.PublishedAt).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": c.ID}).
		Suffix(contentReturning).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update content: %w", err)
	}

	updated, err := scanContent(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err, "update content")
	}
	return updated, nil
}

// Delete permanently removes a content.
func (s *ContentStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contents WHERE id = $1`, id)
	if err != nil {
		return mapError(err, "delete content")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete content %d: %w", id, ErrNotFound)
	}
	return nil
}

// NextOrderIndex returns the order_index that appends a content to its category.
func (s *ContentStore) NextOrderIndex(ctx context.Context, categoryID int64) (int, error) {
	next, err := nextOrderIndex(ctx, s.db, "contents", sq.Eq{"category_id": categoryID})
	if err != nil {
		return 0, fmt.Errorf("next content order: %w", err)
	}
	return next, nil
}

// CountByCategory returns how many contents belong to a category.
func (s *ContentStore) CountByCategory(ctx context.Context, categoryID int64) (int, error) {
	n, err := count(ctx, s.db, "contents", sq.Eq{"category_id": categoryID})
	if err != nil {
		return 0, fmt.Errorf("count contents: %w", err)
	}
	return n, nil
}

// Search returns published contents whose title or plain text contains q,
// case-insensitively, most viewed first. moduleID 0 searches every module.
func (s *ContentStore) Search(ctx context.Context, q string, moduleID int64) ([]models.SearchResult, error) {
	pattern := likePattern(q)
	where := sq.And{
		sq.Eq{"ct.is_published": true},
		sq.Or{
			sq.Expr(`ct.title ILIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`ct.plain_content ILIKE ? ESCAPE '\'`, pattern),
		},
	}
	if moduleID != 0 {
		where = append(where, sq.Eq{"c.module_id": moduleID})
	}

	query, args, err := psql.Select(
		"ct.id", "ct.category_id", "ct.title", "ct.plain_content", "ct.meta_description",
		"ct.view_count", "ct.published_at", "c.title", "m.name",
	).
		From("contents ct").
		Join("categories c ON c.id = ct.category_id").
		Join("modules m ON m.id = c.module_id").
		Where(where).
		OrderBy("ct.view_count DESC", "ct.published_at DESC NULLS LAST", "ct.id ASC").
		Limit(SearchLimit).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build search contents: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search contents: %w", err)
	}
	defer rows.Close()

	results := []models.SearchResult{}
	for rows.Next() {
		var r models.SearchResult
		if err := rows.Scan(
			&r.ID, &r.CategoryID, &r.Title, &r.PlainContent, &r.MetaDescription,
			&r.ViewCount, &r.PublishedAt, &r.CategoryTitle, &r.ModuleName,
		); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Move swaps a content with its neighbour inside its category.
func (s *ContentStore) Move(ctx context.Context, id int64, dir ordering.Direction) error {
	var categoryID int64
	err := s.db.QueryRowContext(ctx, `SELECT category_id FROM contents WHERE id = $1`, id).Scan(&categoryID)
	if err != nil {
		return mapError(err, "find content to move")
	}

	if err := moveInGroup(ctx, s.db, "contents", sq.Eq{"category_id": categoryID}, id, dir); err != nil {
		return fmt.Errorf("move content %d: %w", id, err)
	}
	return nil
}
