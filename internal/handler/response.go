package handler

// Every error response has the same shape:
//
//	{"error": "not_found", "message": "user not found: abc123"}
//
// with "field" set for validation errors and "detail" (the underlying error
// text) only outside production.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/accessai/internal/apperror"
)

// maxBodyBytes bounds request bodies. Chat history dominates: fifty
// messages at the input limit fit comfortably.
const maxBodyBytes = 4 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // machine-readable, e.g. "not_found"
	Message string `json:"message"` // human-readable
	Field   string `json:"field,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// writeJSON sends a JSON response. Headers and status go out before the body.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are already sent; all we can do is log
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// decodeJSON reads a single JSON object from the body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &tooLarge):
			return apperror.ValidationFailed("", fmt.Sprintf("request body must be at most %d bytes", tooLarge.Limit))
		case errors.As(err, &typeErr):
			return apperror.ValidationFailed(typeErr.Field, fmt.Sprintf("%s has the wrong type", typeErr.Field))
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("", "request body is required")
		default:
			return apperror.ValidationFailed("", "request body is not valid JSON")
		}
	}
	return nil
}

// errorStatus maps a domain error to its HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, apperror.ErrUpstream):
		return http.StatusInternalServerError, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// responder writes error bodies. exposeDetail is false in production so
// raw errors (SQL, file paths, provider messages) never reach clients.
type responder struct {
	logger       *slog.Logger
	exposeDetail bool
}

// writeError maps err to a status and writes the standard body. Server-side
// failures are logged with the request ID.
func (rs responder) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)

	resp := ErrorResponse{Error: code, Message: "An internal error occurred"}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		resp.Message = appErr.Message
		resp.Field = appErr.Field
		if rs.exposeDetail && appErr.Cause != nil {
			resp.Detail = appErr.Cause.Error()
		}
	} else if rs.exposeDetail {
		resp.Detail = err.Error()
	}

	if status >= http.StatusInternalServerError {
		rs.logger.Error("request failed",
			slog.String("requestID", chimiddleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	writeJSON(w, status, resp)
}

// NotFound and MethodNotAllowed keep unknown routes on the JSON error format.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: fmt.Sprintf("route not found: %s %s", r.Method, r.URL.Path),
	})
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Error:   "method_not_allowed",
		Message: fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path),
	})
}
