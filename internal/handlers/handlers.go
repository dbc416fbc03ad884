// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers contains the JSON API handlers for the guidebook admin.
// Handlers are grouped by resource (modules, categories, contents, health)
// and receive their dependencies through the handler struct.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"guidebook/internal/cache"
	"guidebook/internal/middleware"
	"guidebook/internal/models"
	"guidebook/internal/ordering"
	"guidebook/internal/respond"
)

// maxBodyBytes caps request bodies; rich-text content is the largest field.
const maxBodyBytes = 4 << 20

// ModuleStore is the module persistence used by the handlers.
type ModuleStore interface {
	ListActive(ctx context.Context) ([]models.Module, error)
	FindActiveByID(ctx context.Context, id int64) (*models.Module, error)
	Create(ctx context.Context, m *models.Module) (*models.Module, error)
	SlugTaken(ctx context.Context, slug string) (bool, error)
}

// CategoryStore is the category persistence used by the handlers.
type CategoryStore interface {
	List(ctx context.Context, moduleID int64, includeInactive bool) ([]models.Category, error)
	FindByID(ctx context.Context, id int64) (*models.Category, error)
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	Update(ctx context.Context, c *models.Category) error
	Delete(ctx context.Context, id int64) error
	SlugTaken(ctx context.Context, moduleID int64, slug string, excludeID int64) (bool, error)
	NextOrderIndex(ctx context.Context, moduleID int64, parentID *int64) (int, error)
	CountActiveChildren(ctx context.Context, id int64) (int, error)
	CountChildren(ctx context.Context, id int64) (int, error)
	Move(ctx context.Context, id int64, dir ordering.Direction) error
}

// ContentStore is the content persistence used by the handlers.
type ContentStore interface {
	ListByCategory(ctx context.Context, categoryID int64) ([]models.Content, error)
	FindByID(ctx context.Context, id int64) (*models.Content, error)
	IncrementViewCount(ctx context.Context, id int64) (int64, error)
	Create(ctx context.Context, c *models.Content) (*models.Content, error)
	Update(ctx context.Context, c *models.Content) (*models.Content, error)
	Delete(ctx context.Context, id int64) error
	NextOrderIndex(ctx context.Context, categoryID int64) (int, error)
	CountByCategory(ctx context.Context, categoryID int64) (int, error)
	Search(ctx context.Context, q string, moduleID int64) ([]models.SearchResult, error)
	Move(ctx context.Context, id int64, dir ordering.Direction) error
}

// TreeCache caches assembled category trees. *cache.TreeCache satisfies it,
// including a nil one.
type TreeCache interface {
	Get(ctx context.Context, moduleID int64, includeInactive bool) (*cache.Tree, bool)
	Generation(ctx context.Context, moduleID int64) int64
	Set(ctx context.Context, moduleID int64, includeInactive bool, gen int64, tree *cache.Tree)
	Invalidate(ctx context.Context, moduleIDs ...int64)
}

// base carries what every handler group needs to report failures.
type base struct {
	exposeErrors bool
}

// serverError logs err and writes a 500 envelope.
func (b base) serverError(w http.ResponseWriter, r *http.Request, message string, err error) {
	slog.Error(message,
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.RequestIDFromContext(r.Context()),
	)
	respond.Internal(w, message, err, b.exposeErrors)
}

// failure is a client error found while checking a request.
type failure struct {
	status  int
	message string
}

func (f *failure) Error() string { return f.message }

func fail(status int, message string) error {
	return &failure{status: status, message: message}
}

// writeErr writes a failure as its envelope and anything else as a 500.
func (b base) writeErr(w http.ResponseWriter, r *http.Request, message string, err error) {
	var f *failure
	if errors.As(err, &f) {
		respond.Fail(w, f.status, f.message)
		return
	}
	b.serverError(w, r, message, err)
}

// errBadBody marks request bodies that could not be decoded.
var errBadBody = errors.New("invalid request body")

// decodeJSON reads a JSON object from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: body is empty", errBadBody)
		}
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

// badBody writes the 400 for a decodeJSON failure.
func badBody(w http.ResponseWriter, err error) {
	respond.Fail(w, http.StatusBadRequest, "Invalid JSON body: "+strings.TrimPrefix(err.Error(), errBadBody.Error()+": "))
}

// parseID parses a positive integer id.
func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// pathID returns the {id} URL parameter, writing a 400 when it is invalid.
func pathID(w http.ResponseWriter, r *http.Request, resource string) (int64, bool) {
	id, ok := parseID(chi.URLParam(r, "id"))
	if !ok {
		respond.Fail(w, http.StatusBadRequest, "Invalid "+resource+" id")
	}
	return id, ok
}

// queryID returns a required positive integer query parameter, writing a
// 400 when it is missing or invalid.
func queryID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		respond.Fail(w, http.StatusBadRequest, name+" is required")
		return 0, false
	}
	id, ok := parseID(raw)
	if !ok {
		respond.Fail(w, http.StatusBadRequest, name+" must be a positive integer")
	}
	return id, ok
}

// flexID is an id sent either as a JSON number or a numeric string, as
// HTML form selects do.
type flexID int64

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexID) UnmarshalJSON(b []byte) error {
	s := string(b)
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	id, ok := parseID(s)
	if !ok {
		return fmt.Errorf("invalid id %s", b)
	}
	*f = flexID(id)
	return nil
}

// ptr returns the id as *int64, or nil for a nil receiver.
func (f *flexID) ptr() *int64 {
	if f == nil {
		return nil
	}
	id := int64(*f)
	return &id
}

// optionalID distinguishes an absent parent_id from an explicit null.
// null, "" and 0 all mean "no parent".
type optionalID struct {
	Set bool
	ID  *int64
}

// UnmarshalJSON implements json.Unmarshaler. It is not called for absent keys.
func (o *optionalID) UnmarshalJSON(b []byte) error {
	o.Set = true
	switch string(b) {
	case "null", `""`, "0", `"0"`:
		o.ID = nil
		return nil
	}
	var f flexID
	if err := f.UnmarshalJSON(b); err != nil {
		return err
	}
	o.ID = f.ptr()
	return nil
}

// optionalString distinguishes an absent field from an explicit null. An
// empty string clears the field like null does.
type optionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON implements json.Unmarshaler. It is not called for absent keys.
func (o *optionalString) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s = strings.TrimSpace(s); s == "" {
		o.Value = nil
		return nil
	}
	o.Value = &s
	return nil
}

// NotFound answers unknown routes with a 404 envelope.
func NotFound(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusNotFound, respond.Envelope{
		Message: "API endpoint not found",
		Data:    map[string]string{"path": r.URL.Path, "method": r.Method},
	})
}

// MethodNotAllowed answers known routes called with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusMethodNotAllowed, respond.Envelope{
		Message: "Method not allowed",
		Data:    map[string]string{"path": r.URL.Path, "method": r.Method},
	})
}

// moveRequest is the body of the move endpoints.
type moveRequest struct {
	Direction string `json:"direction"`
}

// parseMove decodes a move body, writing a 400 when it is invalid.
func parseMove(w http.ResponseWriter, r *http.Request) (ordering.Direction, bool) {
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		badBody(w, err)
		return "", false
	}
	dir, err := ordering.ParseDirection(req.Direction)
	if err != nil {
		respond.Fail(w, http.StatusBadRequest, "direction must be \"up\" or \"down\"")
		return "", false
	}
	return dir, true
}
