// Package repository declares the storage contracts the service layer
// depends on. The sqlite subpackage is the production implementation.
package repository

import (
	"context"

	"github.com/sakif/recipe-api/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
}

// LabelListOptions narrows an owner's label listing.
type LabelListOptions struct {
	// AssignedOnly keeps labels referenced by at least one recipe.
	AssignedOnly bool
}

// LabelRepository is the ownership-scoped collection shared by tags and
// ingredients. Every method takes the owner explicitly; there is no way to
// read another user's labels through it.
type LabelRepository[T model.Label] interface {
	ListByOwner(ctx context.Context, ownerID int64, opts LabelListOptions) ([]T, error)
	Create(ctx context.Context, ownerID int64, name string) (*T, error)
	// OwnedIDs returns the subset of ids that exist and belong to ownerID.
	OwnedIDs(ctx context.Context, ownerID int64, ids []int64) ([]int64, error)
}

// RecipeFilter selects recipes by association. Each list is any-of; the two
// lists combine with AND. Empty lists do not filter.
type RecipeFilter struct {
	TagIDs        []int64
	IngredientIDs []int64
}

type RecipeRepository interface {
	// ListByOwner returns recipes newest first. Tags and Ingredients carry
	// ids only; use GetByID for names.
	ListByOwner(ctx context.Context, ownerID int64, filter RecipeFilter) ([]model.Recipe, error)
	GetByID(ctx context.Context, ownerID, id int64) (*model.Recipe, error)
	// Create inserts the recipe and its association rows in one transaction.
	Create(ctx context.Context, recipe *model.Recipe) error
	// Update rewrites the scalar columns and replaces both association sets.
	Update(ctx context.Context, recipe *model.Recipe) error
	// SetImage swaps the stored image key and returns the previous one.
	SetImage(ctx context.Context, ownerID, id int64, image string) (previous string, err error)
	// Delete removes the recipe and its association rows and returns the
	// image key it held.
	Delete(ctx context.Context, ownerID, id int64) (image string, err error)
}
