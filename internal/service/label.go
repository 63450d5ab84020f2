package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/recipe-api/internal/model"
	"github.com/sakif/recipe-api/internal/repository"
	"github.com/sakif/recipe-api/internal/validation"
)

// LabelInput is the create payload for a tag or ingredient. Any owner field
// a client sends is not part of it and is ignored by the decoder.
type LabelInput struct {
	Name string `json:"name" validate:"notblank,max=255"`
}

// LabelService serves both tag and ingredient collections. kind only feeds
// log and error messages.
type LabelService[T model.Label] struct {
	repo     repository.LabelRepository[T]
	validate *validation.Validator
	logger   *slog.Logger
	kind     string
}

func NewLabelService[T model.Label](
	kind string,
	repo repository.LabelRepository[T],
	validate *validation.Validator,
	logger *slog.Logger,
) *LabelService[T] {
	return &LabelService[T]{repo: repo, validate: validate, logger: logger, kind: kind}
}

// List returns the caller's labels, name descending. With assignedOnly only
// labels attached to at least one recipe are returned, each once.
func (s *LabelService[T]) List(ctx context.Context, ownerID int64, assignedOnly bool) ([]T, error) {
	labels, err := s.repo.ListByOwner(ctx, ownerID, repository.LabelListOptions{AssignedOnly: assignedOnly})
	if err != nil {
		return nil, fmt.Errorf("service/%s: listing: %w", s.kind, err)
	}
	return labels, nil
}

// Create stores a label owned by ownerID. Surrounding whitespace is trimmed.
func (s *LabelService[T]) Create(ctx context.Context, ownerID int64, in LabelInput) (*T, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	label, err := s.repo.Create(ctx, ownerID, in.Name)
	if err != nil {
		return nil, fmt.Errorf("service/%s: creating: %w", s.kind, err)
	}

	s.logger.Info(s.kind+" created",
		slog.Int64("id", model.LabelID(*label)),
		slog.Int64("userID", ownerID),
	)
	return label, nil
}
