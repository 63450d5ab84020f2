package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/auth"
	"github.com/sakif/recipe-api/internal/model"
	"github.com/sakif/recipe-api/internal/service"
)

// LabelHandler serves /recipe/tags and /recipe/ingredients. Both collections
// share one handler type instantiated per label kind.
//
//	GET  ?assigned_only=1 → HandleList
//	POST {"name": "..."}  → HandleCreate
type LabelHandler[T model.Label] struct {
	labels *service.LabelService[T]
	logger *slog.Logger
}

func NewLabelHandler[T model.Label](labels *service.LabelService[T], logger *slog.Logger) *LabelHandler[T] {
	return &LabelHandler[T]{labels: labels, logger: logger}
}

func (h *LabelHandler[T]) HandleList(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, r, apperror.Unauthenticated("Authentication credentials were not provided."))
		return
	}

	assignedOnly, err := parseBoolQuery(r, "assigned_only")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	labels, err := h.labels.List(r.Context(), ownerID, assignedOnly)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, labels)
}

func (h *LabelHandler[T]) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, r, apperror.Unauthenticated("Authentication credentials were not provided."))
		return
	}

	var in service.LabelInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}

	label, err := h.labels.Create(r.Context(), ownerID, in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, label)
}

// parseBoolQuery reads an optional boolean query parameter. "1", "true" and
// "0", "false" are accepted (strconv.ParseBool); absent means false.
func parseBoolQuery(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, apperror.ValidationFailed(name, "Must be a valid boolean.")
	}
	return v, nil
}
