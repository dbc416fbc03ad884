// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"guidebook/internal/cache"
	"guidebook/internal/models"
	"guidebook/internal/ordering"
	"guidebook/internal/respond"
	"guidebook/internal/slug"
	"guidebook/internal/store"
	"guidebook/internal/telemetry"
	"guidebook/internal/tree"
)

// Categories groups the category endpoints.
type Categories struct {
	base
	categories CategoryStore
	modules    ModuleStore
	contents   ContentStore
	trees      TreeCache
}

// NewCategories creates the category handlers. trees may be a nil
// *cache.TreeCache when Valkey is not configured.
func NewCategories(categories CategoryStore, modules ModuleStore, contents ContentStore, trees TreeCache, exposeErrors bool) *Categories {
	return &Categories{
		base:       base{exposeErrors: exposeErrors},
		categories: categories,
		modules:    modules,
		contents:   contents,
		trees:      trees,
	}
}

// List returns a module's categories as a two-level tree. total is the
// number of flat rows the tree was built from.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	moduleID, ok := queryID(w, r, "module_id")
	if !ok {
		return
	}
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	ctx := r.Context()

	if cached, hit := h.trees.Get(ctx, moduleID, includeInactive); hit {
		respond.List(w, cached.Roots, cached.Total, "")
		return
	}

	gen := h.trees.Generation(ctx, moduleID)
	rows, err := h.categories.List(ctx, moduleID, includeInactive)
	if err != nil {
		h.serverError(w, r, "Failed to fetch categories", err)
		return
	}

	roots, dropped := tree.Build(rows)
	if len(dropped) > 0 {
		telemetry.TreeDroppedCategoriesTotal.Add(float64(len(dropped)))
		slog.Warn("categories left out of tree", "module_id", moduleID, "ids", dropped)
	}

	h.trees.Set(ctx, moduleID, includeInactive, gen, &cache.Tree{Roots: roots, Total: len(rows)})
	respond.List(w, roots, len(rows), "")
}

// Get returns one category with its module name and parent title.
func (h *Categories) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}

	c, err := h.categories.FindByID(r.Context(), id)
	if err != nil {
		h.serverError(w, r, "Failed to fetch category", err)
		return
	}
	if c == nil {
		respond.Fail(w, http.StatusNotFound, "Category not found")
		return
	}
	respond.OK(w, http.StatusOK, c, "")
}

type categoryRequest struct {
	ModuleID    *flexID        `json:"module_id"`
	ParentID    optionalID     `json:"parent_id"`
	Title       *string        `json:"title"`
	Description optionalString `json:"description"`
	OrderIndex  *int           `json:"order_index"`
	IsActive    *bool          `json:"is_active"`
}

// validate checks the fields present in the request.
func (req *categoryRequest) validate() string {
	if req.Title != nil {
		if msg := validateTitle(*req.Title); msg != "" {
			return msg
		}
	}
	if req.Description.Value != nil {
		if msg := tooLong("Description", *req.Description.Value, maxDescriptionLen); msg != "" {
			return msg
		}
	}
	return validateOrderIndex(req.OrderIndex)
}

// checkParent verifies that parentID names a root category of moduleID.
func (h *Categories) checkParent(ctx context.Context, moduleID int64, parentID *int64) error {
	if parentID == nil {
		return nil
	}
	p, err := h.categories.FindByID(ctx, *parentID)
	if err != nil {
		return err
	}
	if p == nil || p.ModuleID != moduleID {
		return fail(http.StatusNotFound, "Parent category not found in this module")
	}
	if !p.IsRoot() {
		return fail(http.StatusBadRequest, "Parent category must be a top-level category")
	}
	return nil
}

// uniqueSlug derives a slug from title that is free in moduleID. excludeID
// (0 for none) is the category being updated.
func (h *Categories) uniqueSlug(ctx context.Context, moduleID int64, title string, excludeID int64) (string, error) {
	root, err := slug.Validate(title)
	if err != nil {
		return "", fail(http.StatusBadRequest, "Title must contain letters or digits")
	}
	s, err := slug.Unique(ctx, root, func(ctx context.Context, candidate string) (bool, error) {
		return h.categories.SlugTaken(ctx, moduleID, candidate, excludeID)
	})
	if err != nil {
		return "", err
	}
	if s != root {
		telemetry.SlugCollisionsTotal.Inc()
	}
	return s, nil
}

// storeErr maps store sentinels to client failures.
func storeErr(err error, notFound string) error {
	switch {
	case errors.Is(err, store.ErrConflict):
		return fail(http.StatusBadRequest, "Category slug already exists in this module, please retry")
	case errors.Is(err, store.ErrNotFound):
		return fail(http.StatusNotFound, notFound)
	}
	return err
}

// Create adds a category. The slug is derived from the title and made
// unique within the module; the category is appended to its siblings
// unless order_index is given.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	if req.ModuleID == nil {
		respond.Fail(w, http.StatusBadRequest, "module_id is required")
		return
	}
	if req.Title == nil {
		respond.Fail(w, http.StatusBadRequest, "Title is required")
		return
	}
	if msg := req.validate(); msg != "" {
		respond.Fail(w, http.StatusBadRequest, msg)
		return
	}

	created, err := h.create(r.Context(), &req)
	if err != nil {
		h.writeErr(w, r, "Failed to create category", err)
		return
	}
	respond.OK(w, http.StatusCreated, created, "Category created successfully")
}

func (h *Categories) create(ctx context.Context, req *categoryRequest) (*models.Category, error) {
	moduleID := int64(*req.ModuleID)
	m, err := h.modules.FindActiveByID(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fail(http.StatusNotFound, "Module not found")
	}

	parentID := req.ParentID.ID
	if err := h.checkParent(ctx, moduleID, parentID); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(*req.Title)
	s, err := h.uniqueSlug(ctx, moduleID, title, 0)
	if err != nil {
		return nil, err
	}

	c := &models.Category{
		ModuleID:    moduleID,
		ParentID:    parentID,
		Title:       title,
		Slug:        s,
		Description: req.Description.Value,
		IsActive:    true,
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	if req.OrderIndex != nil {
		c.OrderIndex = *req.OrderIndex
	} else if c.OrderIndex, err = h.categories.NextOrderIndex(ctx, moduleID, parentID); err != nil {
		return nil, err
	}

	created, err := h.categories.Create(ctx, c)
	if err != nil {
		return nil, storeErr(err, "Module or parent category not found")
	}
	h.trees.Invalidate(ctx, moduleID)
	return created, nil
}

// Update applies a partial update. The slug is regenerated only when the
// title changes or the category moves to another module.
func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}

	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	if msg := req.validate(); msg != "" {
		respond.Fail(w, http.StatusBadRequest, msg)
		return
	}

	updated, err := h.update(r.Context(), id, &req)
	if err != nil {
		h.writeErr(w, r, "Failed to update category", err)
		return
	}
	respond.OK(w, http.StatusOK, updated, "Category updated successfully")
}

func (h *Categories) update(ctx context.Context, id int64, req *categoryRequest) (*models.Category, error) {
	existing, err := h.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fail(http.StatusNotFound, "Category not found")
	}
	c := *existing
	c.ModuleName, c.ParentTitle = nil, nil

	if req.ModuleID != nil && int64(*req.ModuleID) != existing.ModuleID {
		c.ModuleID = int64(*req.ModuleID)
		m, err := h.modules.FindActiveByID(ctx, c.ModuleID)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, fail(http.StatusNotFound, "Module not found")
		}
		children, err := h.categories.CountChildren(ctx, id)
		if err != nil {
			return nil, err
		}
		if children > 0 {
			return nil, fail(http.StatusBadRequest, "Cannot move a category with subcategories to another module")
		}
	}
	moduleChanged := c.ModuleID != existing.ModuleID

	if req.ParentID.Set {
		c.ParentID = req.ParentID.ID
	}
	if c.ParentID != nil {
		if *c.ParentID == id {
			return nil, fail(http.StatusBadRequest, "A category cannot be its own parent")
		}
		if existing.ParentID == nil {
			children, err := h.categories.CountChildren(ctx, id)
			if err != nil {
				return nil, err
			}
			if children > 0 {
				return nil, fail(http.StatusBadRequest, "A category with subcategories cannot become a subcategory")
			}
		}
		if err := h.checkParent(ctx, c.ModuleID, c.ParentID); err != nil {
			return nil, err
		}
	}

	if req.Title != nil {
		c.Title = strings.TrimSpace(*req.Title)
	}
	if c.Title != existing.Title || moduleChanged {
		if c.Slug, err = h.uniqueSlug(ctx, c.ModuleID, c.Title, id); err != nil {
			return nil, err
		}
	}
	if req.Description.Set {
		c.Description = req.Description.Value
	}
	switch {
	case req.OrderIndex != nil:
		c.OrderIndex = *req.OrderIndex
	case moduleChanged || !sameID(c.ParentID, existing.ParentID):
		// A category entering a new sibling group goes to its end.
		if c.OrderIndex, err = h.categories.NextOrderIndex(ctx, c.ModuleID, c.ParentID); err != nil {
			return nil, err
		}
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}

	if err := h.categories.Update(ctx, &c); err != nil {
		return nil, storeErr(err, "Category not found")
	}
	h.trees.Invalidate(ctx, existing.ModuleID, c.ModuleID)

	updated, err := h.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, fail(http.StatusNotFound, "Category not found")
	}
	return updated, nil
}

// Delete removes a category that has no active subcategories and no
// contents. Inactive subcategories become top-level categories.
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}
	if err := h.delete(r.Context(), id); err != nil {
		h.writeErr(w, r, "Failed to delete category", err)
		return
	}
	respond.OK(w, http.StatusOK, nil, "Category deleted successfully")
}

func (h *Categories) delete(ctx context.Context, id int64) error {
	c, err := h.categories.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return fail(http.StatusNotFound, "Category not found")
	}

	children, err := h.categories.CountActiveChildren(ctx, id)
	if err != nil {
		return err
	}
	if children > 0 {
		return fail(http.StatusBadRequest, "Cannot delete category with active subcategories. Please delete or move them first.")
	}

	contents, err := h.contents.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if contents > 0 {
		return fail(http.StatusBadRequest, fmt.Sprintf("Cannot delete category with %d content item(s). Please delete or move them first.", contents))
	}

	if err := h.categories.Delete(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fail(http.StatusNotFound, "Category not found")
		}
		return err
	}
	h.trees.Invalidate(ctx, c.ModuleID)
	return nil
}

// Move swaps a category with its previous or next sibling.
func (h *Categories) Move(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}
	dir, ok := parseMove(w, r)
	if !ok {
		return
	}

	moved, err := h.move(r.Context(), id, dir)
	if err != nil {
		h.writeErr(w, r, "Failed to move category", err)
		return
	}
	respond.OK(w, http.StatusOK, moved, "Category moved successfully")
}

func (h *Categories) move(ctx context.Context, id int64, dir ordering.Direction) (*models.Category, error) {
	err := h.categories.Move(ctx, id, dir)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, fail(http.StatusNotFound, "Category not found")
	case errors.Is(err, ordering.ErrBoundary):
		return nil, fail(http.StatusBadRequest, fmt.Sprintf("Category cannot move %s any further", dir))
	case err != nil:
		return nil, err
	}

	c, err := h.categories.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fail(http.StatusNotFound, "Category not found")
	}
	h.trees.Invalidate(ctx, c.ModuleID)
	return c, nil
}

func sameID(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
