// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "time"

// Category is a node in a module's category tree. ParentID is nil for
// top-level categories; a non-nil ParentID always names a top-level
// category of the same module.
type Category struct {
	ID          int64     `json:"id"`
	ModuleID    int64     `json:"module_id"`
	ParentID    *int64    `json:"parent_id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description *string   `json:"description"`
	OrderIndex  int       `json:"order_index"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Virtual fields populated by store joins.
	ModuleName  *string `json:"module_name,omitempty"`
	ParentTitle *string `json:"parent_title,omitempty"`
}

// IsRoot returns true if the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// CategoryNode is a category with its children attached, as returned by
// tree-shaped listings. Children is never nil so it encodes as [].
type CategoryNode struct {
	Category
	Children []CategoryNode `json:"children"`
}
