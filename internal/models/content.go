// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// Content is a rich-text document that belongs to exactly one category.
// PlainContent is derived from HTMLContent on every write and is what the
// search endpoint matches against.
type Content struct {
	ID              int64      `json:"id"`
	CategoryID      int64      `json:"category_id"`
	Title           string     `json:"title"`
	HTMLContent     string     `json:"html_content"`
	PlainContent    string     `json:"plain_content"`
	MetaDescription *string    `json:"meta_description"`
	FeaturedImage   *string    `json:"featured_image"`
	IsPublished     bool       `json:"is_published"`
	OrderIndex      int        `json:"order_index"`
	ViewCount       int64      `json:"view_count"`
	PublishedAt     *time.Time `json:"published_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Virtual fields populated by store joins.
	CategoryTitle *string `json:"category_title,omitempty"`
	CategorySlug  *string `json:"category_slug,omitempty"`
	ModuleName    *string `json:"module_name,omitempty"`
	ModuleSlug    *string `json:"module_slug,omitempty"`
}

// SetPublished applies a publish-state change at time now. published_at is
// stamped on the first transition to published and cleared on unpublish;
// republishing an already published item keeps the original timestamp.
func (c *Content) SetPublished(published bool, now time.Time) {
	switch {
	case published && (!c.IsPublished || c.PublishedAt == nil):
		c.PublishedAt = &now
	case !published:
		c.PublishedAt = nil
	}
	c.IsPublished = published
}

// SearchResult is a trimmed content row returned by full-text search.
type SearchResult struct {
	ID              int64      `json:"id"`
	CategoryID      int64      `json:"category_id"`
	Title           string     `json:"title"`
	PlainContent    string     `json:"plain_content"`
	MetaDescription *string    `json:"meta_description"`
	ViewCount       int64      `json:"view_count"`
	PublishedAt     *time.Time `json:"published_at"`
	CategoryTitle   string     `json:"category_title"`
	ModuleName      string     `json:"module_name"`
}
