// Package respond writes the JSON envelope shared by every API response.
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool    `json:"success"`
	Data    any     `json:"data"`
	Message string  `json:"message"`
	Error   string  `json:"error,omitempty"`
	Total   *int    `json:"total,omitempty"`
	Query   *string `json:"query,omitempty"`
}

// JSON writes v as the response body with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write json response", "error", err)
	}
}

// OK writes a successful envelope.
func OK(w http.ResponseWriter, status int, data any, message string) {
	JSON(w, status, Envelope{Success: true, Data: data, Message: message})
}

// List writes a successful envelope carrying a row count.
func List(w http.ResponseWriter, data any, total int, message string) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Message: message, Total: &total})
}

// Search writes a successful envelope echoing the search query.
func Search(w http.ResponseWriter, data any, total int, query, message string) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Message: message, Total: &total, Query: &query})
}

// Fail writes a client error envelope.
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Message: message})
}

// Internal writes a 500 envelope. The raw error text is included only
// when expose is set.
func Internal(w http.ResponseWriter, message string, err error, expose bool) {
	env := Envelope{Message: message}
	if expose && err != nil {
		env.Error = err.Error()
	}
	JSON(w, http.StatusInternalServerError, env)
}
