package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"guidebook/internal/htmltext"
	"guidebook/internal/markdown"
	"guidebook/internal/models"
	"guidebook/internal/ordering"
	"guidebook/internal/respond"
	"guidebook/internal/store"
	"guidebook/internal/telemetry"
)

// Contents groups the content endpoints.
type Contents struct {
	base
	contents   ContentStore
	categories CategoryStore
	now        func() time.Time
}

// NewContents creates the content handlers.
func NewContents(contents ContentStore, categories CategoryStore, exposeErrors bool) *Contents {
	return &Contents{
		base:       base{exposeErrors: exposeErrors},
		contents:   contents,
		categories: categories,
		now:        time.Now,
	}
}

// List returns the contents of one category ordered by order_index.
func (h *Contents) List(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := queryID(w, r, "category_id")
	if !ok {
		return
	}

	items, err := h.contents.ListByCategory(r.Context(), categoryID)
	if err != nil {
		h.serverError(w, r, "Failed to fetch contents", err)
		return
	}
	respond.List(w, items, len(items), "")
}

// Search matches published contents by title or plain text.
func (h *Contents) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		respond.Fail(w, http.StatusBadRequest, "Search query (q) is required")
		return
	}

	var moduleID int64
	if raw := r.URL.Query().Get("module_id"); raw != "" {
		id, ok := parseID(raw)
		if !ok {
			respond.Fail(w, http.StatusBadRequest, "module_id must be a positive integer")
			return
		}
		moduleID = id
	}

	results, err := h.contents.Search(r.Context(), q, moduleID)
	if err != nil {
		h.serverError(w, r, "Failed to search contents", err)
		return
	}
	respond.Search(w, results, len(results), q, "")
}

// Get returns one content and counts the read as a view.
func (h *Contents) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "content")
	if !ok {
		return
	}
	ctx := r.Context()

	if _, err := h.contents.IncrementViewCount(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respond.Fail(w, http.StatusNotFound, "Content not found")
			return
		}
		h.serverError(w, r, "Failed to fetch content", err)
		return
	}

	c, err := h.contents.FindByID(ctx, id)
	if err != nil {
		h.serverError(w, r, "Failed to fetch content", err)
		return
	}
	if c == nil {
		respond.Fail(w, http.StatusNotFound, "Content not found")
		return
	}
	telemetry.ContentViewsTotal.Inc()
	respond.OK(w, http.StatusOK, c, "")
}

type contentRequest struct {
	CategoryID      *flexID        `json:"category_id"`
	Title           *string        `json:"title"`
	HTMLContent     *string        `json:"html_content"`
	MarkdownContent *string        `json:"markdown_content"`
	MetaDescription optionalString `json:"meta_description"`
	FeaturedImage   optionalString `json:"featured_image"`
	IsPublished     *bool          `json:"is_published"`
	OrderIndex      *int           `json:"order_index"`
}

func (req *contentRequest) validate() string {
	if req.Title != nil {
		if msg := validateTitle(*req.Title); msg != "" {
			return msg
		}
	}
	var html string
	if req.HTMLContent != nil {
		html = *req.HTMLContent
	}
	if req.MarkdownContent != nil {
		if msg := tooLong("Markdown content", *req.MarkdownContent, maxHTMLLen); msg != "" {
			return msg
		}
	}
	if msg := validateContentFields(html, req.MetaDescription.Value, req.FeaturedImage.Value); msg != "" {
		return msg
	}
	return validateOrderIndex(req.OrderIndex)
}

// body resolves the HTML to store. html_content wins over markdown_content;
// ok is false when neither was sent.
func (req *contentRequest) body() (html string, ok bool, err error) {
	switch {
	case req.HTMLContent != nil:
		return *req.HTMLContent, true, nil
	case req.MarkdownContent != nil:
		html, err := markdown.ToHTML(*req.MarkdownContent)
		if err != nil {
			return "", false, err
		}
		return html, true, nil
	}
	return "", false, nil
}

// checkCategory verifies that id names an active category.
func (h *Contents) checkCategory(ctx context.Context, id int64) error {
	c, err := h.categories.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil || !c.IsActive {
		return fail(http.StatusNotFound, "Category not found")
	}
	return nil
}

// Create adds a content item, appended to its category unless order_index
// is given.
func (h *Contents) Create(w http.ResponseWriter, r *http.Request) {
	var req contentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	if req.CategoryID == nil {
		respond.Fail(w, http.StatusBadRequest, "category_id is required")
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
		h.writeErr(w, r, "Failed to create content", err)
		return
	}
	respond.OK(w, http.StatusCreated, created, "Content created successfully")
}

func (h *Contents) create(ctx context.Context, req *contentRequest) (*models.Content, error) {
	categoryID := int64(*req.CategoryID)
	if err := h.checkCategory(ctx, categoryID); err != nil {
		return nil, err
	}

	html, _, err := req.body()
	if err != nil {
		return nil, err
	}

	c := &models.Content{
		CategoryID:      categoryID,
		Title:           strings.TrimSpace(*req.Title),
		HTMLContent:     html,
		PlainContent:    htmltext.Extract(html),
		MetaDescription: req.MetaDescription.Value,
		FeaturedImage:   req.FeaturedImage.Value,
	}
	if req.IsPublished != nil {
		c.SetPublished(*req.IsPublished, h.now())
	}
	if req.OrderIndex != nil {
		c.OrderIndex = *req.OrderIndex
	} else if c.OrderIndex, err = h.contents.NextOrderIndex(ctx, categoryID); err != nil {
		return nil, err
	}

	created, err := h.contents.Create(ctx, c)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fail(http.StatusNotFound, "Category not found")
	}
	return created, err
}

// Update applies a partial update. plain_content is recomputed whenever the
// body changes.
func (h *Contents) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "content")
	if !ok {
		return
	}

	var req contentRequest
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
		h.writeErr(w, r, "Failed to update content", err)
		return
	}
	respond.OK(w, http.StatusOK, updated, "Content updated successfully")
}

func (h *Contents) update(ctx context.Context, id int64, req *contentRequest) (*models.Content, error) {
	existing, err := h.contents.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fail(http.StatusNotFound, "Content not found")
	}
	c := *existing

	if req.CategoryID != nil && int64(*req.CategoryID) != existing.CategoryID {
		c.CategoryID = int64(*req.CategoryID)
		if err := h.checkCategory(ctx, c.CategoryID); err != nil {
			return nil, err
		}
	}
	if req.Title != nil {
		c.Title = strings.TrimSpace(*req.Title)
	}

	html, changed, err := req.body()
	if err != nil {
		return nil, err
	}
	if changed {
		c.HTMLContent = html
		c.PlainContent = htmltext.Extract(html)
	}
	if req.MetaDescription.Set {
		c.MetaDescription = req.MetaDescription.Value
	}
	if req.FeaturedImage.Set {
		c.FeaturedImage = req.FeaturedImage.Value
	}
	if req.IsPublished != nil {
		c.SetPublished(*req.IsPublished, h.now())
	}
	switch {
	case req.OrderIndex != nil:
		c.OrderIndex = *req.OrderIndex
	case c.CategoryID != existing.CategoryID:
		if c.OrderIndex, err = h.contents.NextOrderIndex(ctx, c.CategoryID); err != nil {
			return nil, err
		}
	}

	updated, err := h.contents.Update(ctx, &c)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fail(http.StatusNotFound, "Content not found")
	}
	return updated, err
}

// Delete removes a content item.
func (h *Contents) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "content")
	if !ok {
		return
	}

	err := h.contents.Delete(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respond.Fail(w, http.StatusNotFound, "Content not found")
		return
	}
	if err != nil {
		h.serverError(w, r, "Failed to delete content", err)
		return
	}
	respond.OK(w, http.StatusOK, nil, "Content deleted successfully")
}

// Move swaps a content item with its previous or next sibling.
func (h *Contents) Move(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "content")
	if !ok {
		return
	}
	dir, ok := parseMove(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	err := h.contents.Move(ctx, id, dir)
	switch {
	case errors.Is(err, store.ErrNotFound):
		respond.Fail(w, http.StatusNotFound, "Content not found")
		return
	case errors.Is(err, ordering.ErrBoundary):
		respond.Fail(w, http.StatusBadRequest, fmt.Sprintf("Content cannot move %s any further", dir))
		return
	case err != nil:
		h.serverError(w, r, "Failed to move content", err)
		return
	}

	c, err := h.contents.FindByID(ctx, id)
	if err != nil {
		h.serverError(w, r, "Failed to move content", err)
		return
	}
	if c == nil {
		respond.Fail(w, http.StatusNotFound, "Content not found")
		return
	}
	respond.OK(w, http.StatusOK, c, "Content moved successfully")
}
