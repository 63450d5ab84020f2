package handler

// Every error response has the same shape:
//
//	{"error":"validation_error","message":"invalid fields: title","fields":{"title":"This field is required."}}
//
// Handlers return domain errors from the service layer and WriteError picks
// the status. Services never see HTTP status codes.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/model"
)

// maxJSONBody bounds request bodies decoded by decodeJSON.
const maxJSONBody = 1 << 20

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// writeJSON sets headers and status before the body; header changes after
// the first Write are ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// WriteError maps a domain error to its status code and writes the JSON
// body. It is exported for the router's 404/405 handlers and the auth
// middleware.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrInvalidCredentials):
			// Bad login credentials are a 400, never a 401.
			status = http.StatusBadRequest
			errorType = "invalid_credentials"
		case errors.Is(err, apperror.ErrUnauthenticated):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrMethodNotAllowed):
			status = http.StatusMethodNotAllowed
			errorType = "method_not_allowed"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		}

		fields := appErr.Fields
		if fields == nil && appErr.Field != "" {
			fields = map[string]string{appErr.Field: appErr.Message}
		}

		if status == http.StatusInternalServerError {
			logInternal(r, err)
		}
		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
			Fields:  fields,
		})
		return
	}

	// Raw errors may carry SQL or file paths; only the log sees them.
	logInternal(r, err)
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

func logInternal(r *http.Request, err error) {
	slog.Error("request failed",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
}

// decodeJSON reads one JSON value from the body into dst. Unknown fields
// are ignored, so a client-supplied owner never reaches the services.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return decodeError(err)
	}
	return nil
}

// decodeError turns decoder failures into 400-class validation errors.
func decodeError(err error) error {
	var (
		typeErr  *json.UnmarshalTypeError
		syntax   *json.SyntaxError
		tooLarge *http.MaxBytesError
	)
	switch {
	case errors.Is(err, io.EOF):
		return apperror.ValidationFailed("non_field_errors", "Request body is empty.")
	case errors.Is(err, model.ErrPriceFormat):
		return apperror.ValidationFailed("price", "A valid number is required.")
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "non_field_errors"
		}
		// "tags.0" → "tags"
		field, _, _ = strings.Cut(field, ".")
		return apperror.ValidationFailed(field, fmt.Sprintf("Incorrect type. Expected %s.", typeErr.Type))
	case errors.As(err, &syntax):
		return apperror.ValidationFailed("non_field_errors",
			fmt.Sprintf("JSON parse error at offset %d.", syntax.Offset))
	case errors.As(err, &tooLarge):
		return apperror.ValidationFailed("non_field_errors", "Request body too large.")
	default:
		return apperror.ValidationFailed("non_field_errors", "Malformed JSON body.")
	}
}
