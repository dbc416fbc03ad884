package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"guidebook/internal/models"
)

func TestModules_ListActiveOnly(t *testing.T) {
	api := newTestAPI(t)
	b := api.db.addModule("Beta", true)
	b.OrderIndex = 2
	a := api.db.addModule("Alpha", true)
	a.OrderIndex = 1
	api.db.addModule("Hidden", false)

	rec, env := api.do(t, http.MethodGet, "/api/modules/", nil)
	requireStatus(t, rec, http.StatusOK)
	assert.True(t, env.Success)
	require.NotNil(t, env.Total)
	assert.Equal(t, 2, *env.Total)

	mods := decode[[]models.Module](t, env)
	require.Len(t, mods, 2)
	assert.Equal(t, "Alpha", mods[0].Name)
	assert.Equal(t, "Beta", mods[1].Name)
}

func TestModules_ListEmptyIsArray(t *testing.T) {
	api := newTestAPI(t)

	_, env := api.do(t, http.MethodGet, "/api/modules/", nil)
	assert.JSONEq(t, `[]`, string(env.Data))
	assert.Equal(t, 0, *env.Total)
}

func TestModules_Get(t *testing.T) {
	api := newTestAPI(t)
	m := api.db.addModule("Guide", true)
	hidden := api.db.addModule("Hidden", false)

	rec, env := api.do(t, http.MethodGet, pathf("/api/modules/%d", m.ID), nil)
	requireStatus(t, rec, http.StatusOK)
	assert.Equal(t, "Guide", decode[models.Module](t, env).Name)

	rec, env = api.do(t, http.MethodGet, pathf("/api/modules/%d", hidden.ID), nil)
	requireStatus(t, rec, http.StatusNotFound)
	assert.Equal(t, "Module not found", env.Message)

	rec, env = api.do(t, http.MethodGet, "/api/modules/abc", nil)
	requireStatus(t, rec, http.StatusBadRequest)
	assert.Equal(t, "Invalid module id", env.Message)
}

func TestModules_Create(t *testing.T) {
	api := newTestAPI(t)

	rec, env := api.do(t, http.MethodPost, "/api/modules/", map[string]any{
		"name": " Admin Guide ",
		"slug": "Admin Guide",
		"icon": "settings",
	})
	requireStatus(t, rec, http.StatusCreated)
	assert.Equal(t, "Module created successfully", env.Message)

	m := decode[models.Module](t, env)
	assert.Equal(t, "Admin Guide", m.Name)
	assert.Equal(t, "admin-guide", m.Slug)
	assert.True(t, m.IsActive)
	assert.Equal(t, 0, m.OrderIndex)
	require.NotNil(t, m.Icon)
	assert.Equal(t, "settings", *m.Icon)
}

func TestModules_CreateRejects(t *testing.T) {
	api := newTestAPI(t)
	api.db.addModule("guide", true)

	tests := []struct {
		name string
		body map[string]any
		msg  string
	}{
		{"missing name", map[string]any{"slug": "x"}, "Name is required"},
		{"missing slug", map[string]any{"name": "X"}, "Slug is required"},
		{"unusable slug", map[string]any{"name": "X", "slug": "!!!"}, "Slug must contain letters or digits"},
		{"duplicate slug", map[string]any{"name": "X", "slug": "Guide"}, "Module slug already exists"},
		{"negative order", map[string]any{"name": "X", "slug": "x", "order_index": -1}, "order_index must be >= 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := api.do(t, http.MethodPost, "/api/modules/", tt.body)
			requireStatus(t, rec, http.StatusBadRequest)
			assert.Equal(t, tt.msg, env.Message)
		})
	}
}

func TestModules_StoreErrorIsInternal(t *testing.T) {
	api := newTestAPI(t)
	api.db.err = errors.New("connection reset")

	rec, env := api.do(t, http.MethodGet, "/api/modules/", nil)
	requireStatus(t, rec, http.StatusInternalServerError)
	assert.Equal(t, "Failed to fetch modules", env.Message)
	assert.Equal(t, "connection reset", env.Error)
}

func TestModules_HidesErrorsWhenNotExposed(t *testing.T) {
	db := newMemDB()
	db.err = errors.New("connection reset")
	h := NewModules(fakeModules{db}, false)

	api := newTestAPI(t)
	api.router.Get("/hidden", h.List)

	rec, env := api.do(t, http.MethodGet, "/hidden", nil)
	requireStatus(t, rec, http.StatusInternalServerError)
	assert.Empty(t, env.Error)
}
