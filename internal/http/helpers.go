package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"chitfund/internal/core"
)

// envelope is the wire shape of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "url", r.URL.Path, "error", err)
		// Internal details stay in the log.
		writeJSON(w, status, envelope{Success: false, Message: "internal error"})
		return
	}
	writeJSON(w, status, envelope{Success: false, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrOutOfRange):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a small JSON body into dst. Unknown fields and
// trailing garbage are validation errors.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", core.ErrValidation, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: unexpected trailing data in request body", core.ErrValidation)
	}
	return nil
}

// pathMonth parses the {month} path segment.
func pathMonth(r *http.Request) (int, error) {
	raw := r.PathValue("month")
	month, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: month must be a number, got %q", core.ErrValidation, raw)
	}
	return month, nil
}

// liftedFilter parses the optional ?lifted= query parameter.
func liftedFilter(r *http.Request) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("lifted"))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: lifted must be true or false, got %q", core.ErrValidation, raw)
	}
	return &v, nil
}
