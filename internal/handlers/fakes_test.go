package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"guidebook/internal/cache"
	"guidebook/internal/models"
	"guidebook/internal/ordering"
	"guidebook/internal/store"
)

// memDB is an in-memory stand-in for the three stores. It mirrors the
// constraints of the schema that the handlers rely on.
type memDB struct {
	modules    map[int64]*models.Module
	categories map[int64]*models.Category
	contents   map[int64]*models.Content
	nextID     int64
	err        error // returned by every call when set
	onList     func() // runs inside category List, after the rows are read
}

func newMemDB() *memDB {
	return &memDB{
		modules:    map[int64]*models.Module{},
		categories: map[int64]*models.Category{},
		contents:   map[int64]*models.Content{},
	}
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (db *memDB) addModule(name string, active bool) *models.Module {
	m := &models.Module{ID: db.id(), Name: name, Slug: strings.ToLower(name), IsActive: active}
	db.modules[m.ID] = m
	return m
}

func (db *memDB) addCategory(moduleID int64, parentID *int64, title string, order int, active bool) *models.Category {
	c := &models.Category{
		ID: db.id(), ModuleID: moduleID, ParentID: parentID, Title: title,
		Slug: strings.ToLower(strings.ReplaceAll(title, " ", "-")), OrderIndex: order, IsActive: active,
	}
	db.categories[c.ID] = c
	return c
}

func (db *memDB) addContent(categoryID int64, title, html string, order int, published bool) *models.Content {
	c := &models.Content{
		ID: db.id(), CategoryID: categoryID, Title: title, HTMLContent: html,
		PlainContent: html, OrderIndex: order, IsPublished: published,
	}
	db.contents[c.ID] = c
	return c
}

// moveIn applies a move to a sibling group the way the SQL stores do.
func moveIn(items []ordering.Item, id int64, dir ordering.Direction) ([]ordering.Item, error) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].OrderIndex != items[j].OrderIndex {
			return items[i].OrderIndex < items[j].OrderIndex
		}
		return items[i].ID < items[j].ID
	})
	order, err := ordering.Move(ordering.IDs(items), id, dir)
	if err != nil {
		return nil, err
	}
	return ordering.Assign(items, order), nil
}

type fakeModules struct{ db *memDB }

func (f fakeModules) ListActive(context.Context) ([]models.Module, error) {
	if f.db.err != nil {
		return nil, f.db.err
	}
	out := []models.Module{}
	for _, m := range f.db.modules {
		if m.IsActive {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f fakeModules) FindActiveByID(_ context.Context, id int64) (*models.Module, error) {
	if f.db.err != nil {
		return nil, f.db.err
	}
	m, ok := f.db.modules[id]
	if !ok || !m.IsActive {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f fakeModules) Create(_ context.Context, m *models.Module) (*models.Module, error) {
	if f.db.err != nil {
		return nil, f.db.err
	}
	cp := *m
	cp.ID = f.db.id()
	cp.CreatedAt = time.Now()
	f.db.modules[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f fakeModules) SlugTaken(_ context.Context, slug string) (bool, error) {
	for _, m := range f.db.modules {
		if m.Slug == slug {
			return true, nil
		}
	}
	return false, f.db.err
}

type fakeCategories struct{ db *memDB }

func (f fakeCategories) List(_ context.Context, moduleID int64, includeInactive bool) ([]models.Category, error) {
	if f.db.err != nil {
		return nil, f.db.err
	}
	out := []models.Category{}
	for _, c := range f.db.categories {
		if c.ModuleID == moduleID && (includeInactive || c.IsActive) {
			out = append(out, *c)
		}
	}
	if f.db.onList != nil {
		f.db.onList()
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsRoot() != b.IsRoot() {
			return a.IsRoot()
		}
		if a.OrderIndex != b.OrderIndex {
			return a.OrderIndex < b.OrderIndex
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (f fakeCategories) FindByID(_ context.Context, id int64) (*models.Category, error) {
	if f.db.err != nil {
		return nil, f.db.err
	}
	c, ok := f.db.categories[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	if m, ok := f.db.modules[c.ModuleID]; ok {
		cp.ModuleName = &m.Name
	}
	if c.ParentID != nil {
		if p, ok := f.db.categories[*c.ParentID]; ok {
			cp.ParentTitle = &p.Title
		}
	}
	return &cp, nil
}

func (f fakeCategories) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	if f.db.err != nil {
		return nil, f.db.err
	}
	if _, ok := f.db.modules[c.ModuleID]; !ok {
		return nil, store.ErrNotFound
	}
	if taken, _ := f.SlugTaken(ctx, c.ModuleID, c.Slug, 0); taken {
		return nil, store.ErrConflict
	}
	cp := *c
	cp.ID = f.db.id()
	f.db.categories[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f fakeCategories) Update(_ context.Context, c *models.Category) error {
	if f.db.err != nil {
		return f.db.err
	}
	if _, ok := f.db.categories[c.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *c
	f.db.categories[c.ID] = &cp
	return nil
}

func (f fakeCategories) Delete(_ context.Context, id int64) error {
	if f.db.err != nil {
		return f.db.err
	}
	if _, ok := f.db.categories[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.db.categories, id)
	for _, c := range f.db.categories {
		if c.ParentID != nil && *c.ParentID == id {
			c.ParentID = nil
		}
	}
	return nil
}

func (f fakeCategories) SlugTaken(_ context.Context, moduleID int64, slug string, excludeID int64) (bool, error) {
	for _, c := range f.db.categories {
		if c.ModuleID == moduleID && c.Slug == slug && c.ID != excludeID {
			return true, nil
		}
	}
	return false, f.db.err
}

func (f fakeCategories) group(moduleID int64, parentID *int64) []ordering.Item {
	var items []ordering.Item
	for _, c := range f.db.categories {
		if c.ModuleID != moduleID {
			continue
		}
		if (parentID == nil) != c.IsRoot() {
			continue
		}
		if parentID != nil && *c.ParentID != *parentID {
			continue
		}
		items = append(items, ordering.Item{ID: c.ID, OrderIndex: c.OrderIndex})
	}
	return items
}

func (f fakeCategories) NextOrderIndex(_ context.Context, moduleID int64, parentID *int64) (int, error) {
	hi, valid := 0, false
	for _, it := range f.group(moduleID, parentID) {
		if !valid || it.OrderIndex > hi {
			hi, valid = it.OrderIndex, true
		}
	}
	return ordering.Next(hi, valid), f.db.err
}

func (f fakeCategories) countChildren(id int64, activeOnly bool) int {
	n := 0
	for _, c := range f.db.categories {
		if c.ParentID != nil && *c.ParentID == id && (!activeOnly || c.IsActive) {
			n++
		}
	}
	return n
}

func (f fakeCategories) CountActiveChildren(_ context.Context, id int64) (int, error) {
	return f.countChildren(id, true), f.db.err
}

func (f fakeCategories) CountChildren(_ context.Context, id int64) (int, error) {
	return f.countChildren(id, false), f.db.err
}

func (f fakeCategories) Move(_ context.Context, id int64, dir ordering.Direction) error {
	if f.db.err != nil {
		return f.db.err
	}
	c, ok := f.db.categories[id]
	if !ok {
		return store.ErrNotFound
	}
	changed, err := moveIn(f.group(c.ModuleID, c.ParentID), id, dir)
	if err != nil {
		return err
	}
	for _, it := range changed {
		f.db.categories[it.ID].OrderIndex = it.OrderIndex
	}
	return nil
}

type fakeContents struct{ db *memDB }

func (f fakeContents) ListByCategory(_ context.Context, categoryID int64) ([]models.Content, error) {
	if f.db.err != nil {
		return nil, f.db.err
	}
	out := []models.Content{}
	for _, c := range f.db.contents {
		if c.CategoryID == categoryID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderIndex != out[j].OrderIndex {
			return out[i].OrderIndex < out[j].OrderIndex
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f fakeContents) FindByID(_ context.Context, id int64) (*models.Content, error) {
	if f.db.err != nil {
		return nil, f.db.err
	}
	c, ok := f.db.contents[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	if cat, ok := f.db.categories[c.CategoryID]; ok {
		cp.CategoryTitle = &cat.Title
		cp.CategorySlug = &cat.Slug
	}
	return &cp, nil
}

func (f fakeContents) IncrementViewCount(_ context.Context, id int64) (int64, error) {
	if f.db.err != nil {
		return 0, f.db.err
	}
	c, ok := f.db.contents[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	c.ViewCount++
	return c.ViewCount, nil
}

func (f fakeContents) Create(_ context.Context, c *models.Content) (*models.Content, error) {
	if f.db.err != nil {
		return nil, f.db.err
	}
	if _, ok := f.db.categories[c.CategoryID]; !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	cp.ID = f.db.id()
	f.db.contents[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f fakeContents) Update(_ context.Context, c *models.Content) (*models.Content, error) {
	if f.db.err != nil {
		return nil, f.db.err
	}
	if _, ok := f.db.contents[c.ID]; !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	cp.CategoryTitle, cp.CategorySlug, cp.ModuleName, cp.ModuleSlug = nil, nil, nil, nil
	f.db.contents[c.ID] = &cp
	out := cp
	return &out, nil
}

func (f fakeContents) Delete(_ context.Context, id int64) error {
	if f.db.err != nil {
		return f.db.err
	}
	if _, ok := f.db.contents[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.db.contents, id)
	return nil
}

func (f fakeContents) group(categoryID int64) []ordering.Item {
	var items []ordering.Item
	for _, c := range f.db.contents {
		if c.CategoryID == categoryID {
			items = append(items, ordering.Item{ID: c.ID, OrderIndex: c.OrderIndex})
		}
	}
	return items
}

func (f fakeContents) NextOrderIndex(_ context.Context, categoryID int64) (int, error) {
	hi, valid := 0, false
	for _, it := range f.group(categoryID) {
		if !valid || it.OrderIndex > hi {
			hi, valid = it.OrderIndex, true
		}
	}
	return ordering.Next(hi, valid), f.db.err
}

func (f fakeContents) CountByCategory(_ context.Context, categoryID int64) (int, error) {
	return len(f.group(categoryID)), f.db.err
}

func (f fakeContents) Search(_ context.Context, q string, moduleID int64) ([]models.SearchResult, error) {
	if f.db.err != nil {
		return nil, f.db.err
	}
	q = strings.ToLower(q)
	out := []models.SearchResult{}
	for _, c := range f.db.contents {
		if !c.IsPublished {
			continue
		}
		cat := f.db.categories[c.CategoryID]
		if moduleID != 0 && cat.ModuleID != moduleID {
			continue
		}
		if !strings.Contains(strings.ToLower(c.Title), q) && !strings.Contains(strings.ToLower(c.PlainContent), q) {
			continue
		}
		out = append(out, models.SearchResult{
			ID: c.ID, CategoryID: c.CategoryID, Title: c.Title, PlainContent: c.PlainContent,
			ViewCount: c.ViewCount, CategoryTitle: cat.Title, ModuleName: f.db.modules[cat.ModuleID].Name,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ViewCount != out[j].ViewCount {
			return out[i].ViewCount > out[j].ViewCount
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > store.SearchLimit {
		out = out[:store.SearchLimit]
	}
	return out, nil
}

func (f fakeContents) Move(_ context.Context, id int64, dir ordering.Direction) error {
	if f.db.err != nil {
		return f.db.err
	}
	c, ok := f.db.contents[id]
	if !ok {
		return store.ErrNotFound
	}
	changed, err := moveIn(f.group(c.CategoryID), id, dir)
	if err != nil {
		return err
	}
	for _, it := range changed {
		f.db.contents[it.ID].OrderIndex = it.OrderIndex
	}
	return nil
}

// fakeTrees records cache traffic and mirrors the generation check of
// the Valkey cache.
type fakeTrees struct {
	entries     map[string]*cache.Tree
	gens        map[int64]int64
	invalidated []int64
}

func newFakeTrees() *fakeTrees {
	return &fakeTrees{entries: map[string]*cache.Tree{}, gens: map[int64]int64{}}
}

func (f *fakeTrees) Generation(_ context.Context, moduleID int64) int64 {
	return f.gens[moduleID]
}

func (f *fakeTrees) Get(_ context.Context, moduleID int64, includeInactive bool) (*cache.Tree, bool) {
	t, ok := f.entries[cache.TreeKey(moduleID, includeInactive)]
	return t, ok
}

func (f *fakeTrees) Set(_ context.Context, moduleID int64, includeInactive bool, gen int64, tree *cache.Tree) {
	if f.gens[moduleID] != gen {
		return
	}
	f.entries[cache.TreeKey(moduleID, includeInactive)] = tree
}

func (f *fakeTrees) Invalidate(_ context.Context, moduleIDs ...int64) {
	for _, id := range moduleIDs {
		delete(f.entries, cache.TreeKey(id, true))
		delete(f.entries, cache.TreeKey(id, false))
		f.gens[id]++
		f.invalidated = append(f.invalidated, id)
	}
}

// testAPI wires every handler group over a shared memDB.
type testAPI struct {
	db     *memDB
	trees  *fakeTrees
	router chi.Router
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	db := newMemDB()
	trees := newFakeTrees()
	mods, cats, cnts := fakeModules{db}, fakeCategories{db}, fakeContents{db}

	m := NewModules(mods, true)
	c := NewCategories(cats, mods, cnts, trees, true)
	ct := NewContents(cnts, cats, true)
	ct.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	r := chi.NewRouter()
	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)
	r.Route("/api/modules", func(r chi.Router) {
		r.Get("/", m.List)
		r.Post("/", m.Create)
		r.Get("/{id}", m.Get)
	})
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", c.List)
		r.Post("/", c.Create)
		r.Get("/{id}", c.Get)
		r.Put("/{id}", c.Update)
		r.Delete("/{id}", c.Delete)
		r.Post("/{id}/move", c.Move)
	})
	r.Route("/api/contents", func(r chi.Router) {
		r.Get("/", ct.List)
		r.Get("/search", ct.Search)
		r.Post("/", ct.Create)
		r.Get("/{id}", ct.Get)
		r.Put("/{id}", ct.Update)
		r.Delete("/{id}", ct.Delete)
		r.Post("/{id}/move", ct.Move)
	})

	return &testAPI{db: db, trees: trees, router: r}
}

// envelope is the decoded response body.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Total   *int            `json:"total"`
	Query   *string         `json:"query"`
}

// do sends a request with an optional JSON body. body may be a string
// (sent verbatim) or any value to marshal.
func (a *testAPI) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

// decode unmarshals an envelope's data into v.
func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func int64p(v int64) *int64 { return &v }

func pathf(format string, args ...any) string { return fmt.Sprintf(format, args...) }

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	if status >= http.StatusBadRequest {
		var env envelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
		require.False(t, env.Success)
	}
}
