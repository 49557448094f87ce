package handler

// RESPONSE HELPERS:
// Every handler answers through its responder's writeJSON or writeError so
// the API keeps one content type and one error shape:
//
//	{"error": "not_found", "message": "lesson not found with id 7"}
//
// The "error" field is the machine-readable kind; "message" is for humans.
// A 500 never carries the underlying cause. The cause is logged instead.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/codewizard/internal/apperror"
)

// maxBodyBytes caps request bodies. Quiz question documents are the largest
// payload the API accepts.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// responder is embedded by every handler so responses and failure logs go
// through the logger the server injected.
type responder struct {
	logger *slog.Logger
}

// writeJSON sends data with the given status. Headers must be set before
// WriteHeader; anything after is ignored.
func (h responder) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			h.logger.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to its HTTP status.
//
// errors.Is walks the whole chain, so a service error such as
//
//	fmt.Errorf("service/lesson: fetching 7: %w", apperror.NotFound("lesson", 7))
//
// still matches ErrNotFound. Refined kinds are checked through their parents:
// ErrEmailNotFound is a NotFound and ErrInvalidPassword is Unauthenticated.
//
// LOGGING 500s:
// AppError.Error() is the client-safe message, so for a storage failure the
// real database error lives only in AppError.Cause. It is logged here under
// "cause" and never written to the response.
func (h responder) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)

	if status == http.StatusInternalServerError {
		attrs := []any{
			slog.String("error", err.Error()),
			slog.String("path", r.URL.Path),
		}
		if cause := apperror.CauseOf(err); cause != nil {
			attrs = append(attrs, slog.String("cause", cause.Error()))
		}
		if id := chimiddleware.GetReqID(r.Context()); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		h.logger.Error("request failed", attrs...)

		h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	resp := ErrorResponse{Error: kind, Message: http.StatusText(status)}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Field = appErr.Field
	}
	h.writeJSON(w, status, resp)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrStorage):
		return http.StatusInternalServerError, "internal_error"
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeJSON reads one JSON object from the body into dst. Unknown fields
// are ignored so older clients keep working.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return apperror.ValidationFailed("", "request body too large")
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("", "request body is required")
		default:
			return apperror.ValidationFailed("", "invalid JSON body")
		}
	}
	if dec.More() {
		return apperror.ValidationFailed("", "request body must hold a single JSON object")
	}
	return nil
}

// pathID parses a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed(name, fmt.Sprintf("%s must be a positive integer", name))
	}
	return id, nil
}
