package handlers

import (
	"errors"
	"net/http"
	"strings"

	"guidebook/internal/models"
	"guidebook/internal/respond"
	"guidebook/internal/slug"
	"guidebook/internal/store"
)

// Modules groups the module endpoints.
type Modules struct {
	base
	modules ModuleStore
}

// NewModules creates the module handlers.
func NewModules(modules ModuleStore, exposeErrors bool) *Modules {
	return &Modules{base: base{exposeErrors: exposeErrors}, modules: modules}
}

// List returns active modules ordered by order_index.
func (h *Modules) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.modules.ListActive(r.Context())
	if err != nil {
		h.serverError(w, r, "Failed to fetch modules", err)
		return
	}
	respond.List(w, items, len(items), "")
}

// Get returns one active module.
func (h *Modules) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "module")
	if !ok {
		return
	}

	m, err := h.modules.FindActiveByID(r.Context(), id)
	if err != nil {
		h.serverError(w, r, "Failed to fetch module", err)
		return
	}
	if m == nil {
		respond.Fail(w, http.StatusNotFound, "Module not found")
		return
	}
	respond.OK(w, http.StatusOK, m, "")
}

type moduleRequest struct {
	Name       string  `json:"name"`
	Slug       string  `json:"slug"`
	Icon       *string `json:"icon"`
	OrderIndex *int    `json:"order_index"`
	IsActive   *bool   `json:"is_active"`
}

// Create adds a module. The slug is normalised and must be unused.
func (h *Modules) Create(w http.ResponseWriter, r *http.Request) {
	var req moduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return
	}
	if msg := validateModule(req.Name, req.Slug, req.Icon); msg != "" {
		respond.Fail(w, http.StatusBadRequest, msg)
		return
	}
	if msg := validateOrderIndex(req.OrderIndex); msg != "" {
		respond.Fail(w, http.StatusBadRequest, msg)
		return
	}

	s, err := slug.Validate(req.Slug)
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, "Slug must contain letters or digits")
		return
	}

	ctx := r.Context()
	taken, err := h.modules.SlugTaken(ctx, s)
	if err != nil {
		h.serverError(w, r, "Failed to create module", err)
		return
	}
	if taken {
		respond.Fail(w, http.StatusBadRequest, "Module slug already exists")
		return
	}

	m := &models.Module{
		Name:     strings.TrimSpace(req.Name),
		Slug:     s,
		Icon:     req.Icon,
		IsActive: true,
	}
	if req.OrderIndex != nil {
		m.OrderIndex = *req.OrderIndex
	}
	if req.IsActive != nil {
		m.IsActive = *req.IsActive
	}

	created, err := h.modules.Create(ctx, m)
	if errors.Is(err, store.ErrConflict) {
		respond.Fail(w, http.StatusBadRequest, "Module slug already exists")
		return
	}
	if err != nil {
		h.serverError(w, r, "Failed to create module", err)
		return
	}
	respond.OK(w, http.StatusCreated, created, "Module created successfully")
}
