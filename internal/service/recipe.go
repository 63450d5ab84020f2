// Package service holds the business rules between the HTTP handlers and
// the repositories:
//
//	Handler (HTTP)     → parses requests, writes responses
//	Service (business) → validates, enforces ownership, orchestrates
//	Repository (data)  → reads and writes SQLite
//
// Services take repository interfaces, so tests run them against in-memory
// fakes and the manage CLI reuses them without HTTP.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"log/slog"
	"slices"
	"strings"

	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/model"
	"github.com/sakif/recipe-api/internal/repository"
	"github.com/sakif/recipe-api/internal/storage"
	"github.com/sakif/recipe-api/internal/validation"
)

// DefaultMaxImageBytes caps an upload when no limit is configured.
const DefaultMaxImageBytes = 5 << 20

const invalidImageMessage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."

// MaxLabelIDs bounds the distinct tag or ingredient ids accepted in one
// payload or list filter. Each id becomes a bound SQL parameter.
const MaxLabelIDs = 100

// TooManyIDsMessage is reported on the tags or ingredients field.
var TooManyIDsMessage = fmt.Sprintf("Ensure this field has no more than %d elements.", MaxLabelIDs)

// maxImagePixels caps width*height before a full decode allocates pixels.
const maxImagePixels = 40_000_000

type imageFormat struct {
	ext, contentType string
}

// imageFormats maps image.DecodeConfig format names to extension and
// content type.
var imageFormats = map[string]imageFormat{
	"jpeg": {"jpg", "image/jpeg"},
	"png":  {"png", "image/png"},
	"gif":  {"gif", "image/gif"},
	"webp": {"webp", "image/webp"},
}

// RecipeInput carries create and update payloads. Pointer fields tell
// "absent" apart from the zero value, which PATCH needs.
type RecipeInput struct {
	Title       *string      `json:"title"`
	TimeMinutes *int         `json:"time_minutes"`
	Price       *model.Price `json:"price"`
	Link        *string      `json:"link"`
	Tags        *[]int64     `json:"tags"`
	Ingredients *[]int64     `json:"ingredients"`
}

// fullRecipe and partialRecipe are RecipeInput with validation rules for
// create/PUT and PATCH respectively. Converting between them is a plain
// struct conversion.
type fullRecipe struct {
	Title       *string      `json:"title" validate:"required,notblank,max=255"`
	TimeMinutes *int         `json:"time_minutes" validate:"required,gte=0"`
	Price       *model.Price `json:"price" validate:"required,gte=0,price"`
	Link        *string      `json:"link" validate:"omitnil,max=255"`
	Tags        *[]int64     `json:"tags"`
	Ingredients *[]int64     `json:"ingredients"`
}

type partialRecipe struct {
	Title       *string      `json:"title" validate:"omitnil,notblank,max=255"`
	TimeMinutes *int         `json:"time_minutes" validate:"omitnil,gte=0"`
	Price       *model.Price `json:"price" validate:"omitnil,gte=0,price"`
	Link        *string      `json:"link" validate:"omitnil,max=255"`
	Tags        *[]int64     `json:"tags"`
	Ingredients *[]int64     `json:"ingredients"`
}

type RecipeService struct {
	recipes     repository.RecipeRepository
	tags        repository.LabelRepository[model.Tag]
	ingredients repository.LabelRepository[model.Ingredient]
	images      storage.Store
	validate    *validation.Validator
	logger      *slog.Logger
	maxImage    int
}

func NewRecipeService(
	recipes repository.RecipeRepository,
	tags repository.LabelRepository[model.Tag],
	ingredients repository.LabelRepository[model.Ingredient],
	images storage.Store,
	validate *validation.Validator,
	logger *slog.Logger,
	maxImageBytes int,
) *RecipeService {
	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}
	return &RecipeService{
		recipes:     recipes,
		tags:        tags,
		ingredients: ingredients,
		images:      images,
		validate:    validate,
		logger:      logger,
		maxImage:    maxImageBytes,
	}
}

// ImageURL resolves a stored key to its public URL; "" stays "".
func (s *RecipeService) ImageURL(key string) string {
	if key == "" {
		return ""
	}
	return s.images.URL(key)
}

// MaxImageBytes is the upload limit the handler enforces while reading.
func (s *RecipeService) MaxImageBytes() int {
	return s.maxImage
}

func (s *RecipeService) List(ctx context.Context, ownerID int64, filter repository.RecipeFilter) ([]model.Recipe, error) {
	recipes, err := s.recipes.ListByOwner(ctx, ownerID, filter)
	if err != nil {
		return nil, fmt.Errorf("service/recipe: listing: %w", err)
	}
	return recipes, nil
}

// Get returns one recipe with tag and ingredient names. Someone else's
// recipe is reported as not found.
func (s *RecipeService) Get(ctx context.Context, ownerID, id int64) (*model.Recipe, error) {
	r, err := s.recipes.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("service/recipe: getting %d: %w", id, err)
	}
	return r, nil
}

// Create validates in, checks every tag and ingredient id belongs to the
// caller and stores the recipe.
func (s *RecipeService) Create(ctx context.Context, ownerID int64, in RecipeInput) (*model.Recipe, error) {
	trimInput(&in)
	if err := s.validate.Struct(fullRecipe(in)); err != nil {
		return nil, err
	}

	r := &model.Recipe{
		UserID:      ownerID,
		Title:       *in.Title,
		TimeMinutes: *in.TimeMinutes,
		Price:       *in.Price,
	}
	if in.Link != nil {
		r.Link = *in.Link
	}

	if err := s.resolveLabels(ctx, ownerID, r, in, true); err != nil {
		return nil, err
	}

	if err := s.recipes.Create(ctx, r); err != nil {
		return nil, fmt.Errorf("service/recipe: creating: %w", err)
	}

	s.logger.Info("recipe created",
		slog.Int64("recipeID", r.ID),
		slog.Int64("userID", ownerID),
	)
	return s.Get(ctx, ownerID, r.ID)
}

// Update changes an existing recipe. With partial set only the supplied
// fields change (PATCH). Otherwise every required field must be present and
// an absent tags or ingredients list clears that set (PUT).
func (s *RecipeService) Update(ctx context.Context, ownerID, id int64, in RecipeInput, partial bool) (*model.Recipe, error) {
	r, err := s.recipes.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("service/recipe: getting %d: %w", id, err)
	}

	trimInput(&in)
	if partial {
		err = s.validate.Struct(partialRecipe(in))
	} else {
		err = s.validate.Struct(fullRecipe(in))
	}
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		r.Title = *in.Title
	}
	if in.TimeMinutes != nil {
		r.TimeMinutes = *in.TimeMinutes
	}
	if in.Price != nil {
		r.Price = *in.Price
	}
	if in.Link != nil {
		r.Link = *in.Link
	} else if !partial {
		r.Link = ""
	}

	if err := s.resolveLabels(ctx, ownerID, r, in, !partial); err != nil {
		return nil, err
	}

	if err := s.recipes.Update(ctx, r); err != nil {
		return nil, fmt.Errorf("service/recipe: updating %d: %w", id, err)
	}

	s.logger.Info("recipe updated",
		slog.Int64("recipeID", r.ID),
		slog.Int64("userID", ownerID),
		slog.Bool("partial", partial),
	)
	return s.Get(ctx, ownerID, id)
}

// Delete removes the recipe and then its stored image. A failed image
// delete is logged; the recipe is already gone.
func (s *RecipeService) Delete(ctx context.Context, ownerID, id int64) error {
	image, err := s.recipes.Delete(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("service/recipe: deleting %d: %w", id, err)
	}

	if image != "" {
		if err := s.images.Delete(ctx, image); err != nil {
			s.logger.Error("failed to delete recipe image",
				slog.Int64("recipeID", id),
				slog.String("key", image),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.Info("recipe deleted",
		slog.Int64("recipeID", id),
		slog.Int64("userID", ownerID),
	)
	return nil
}

// UploadImage stores data as the recipe's picture. The data must decode as
// JPEG, PNG, GIF or WebP. A previously attached file is left in storage.
func (s *RecipeService) UploadImage(ctx context.Context, ownerID, id int64, data []byte) (*model.Recipe, error) {
	if _, err := s.recipes.GetByID(ctx, ownerID, id); err != nil {
		return nil, fmt.Errorf("service/recipe: getting %d: %w", id, err)
	}

	if len(data) == 0 {
		return nil, apperror.ValidationFailed("image", "The submitted file is empty.")
	}
	if len(data) > s.maxImage {
		return nil, apperror.ValidationFailed("image",
			fmt.Sprintf("Ensure the file is no larger than %d bytes.", s.maxImage))
	}

	kind, err := checkImage(data)
	if err != nil {
		return nil, err
	}

	key := storage.NewRecipeImageKey(kind.ext)
	if err := s.images.Save(ctx, key, data, kind.contentType); err != nil {
		return nil, fmt.Errorf("service/recipe: saving image: %w", err)
	}

	previous, err := s.recipes.SetImage(ctx, ownerID, id, key)
	if err != nil {
		if delErr := s.images.Delete(ctx, key); delErr != nil {
			err = errors.Join(err, delErr)
		}
		return nil, fmt.Errorf("service/recipe: attaching image: %w", err)
	}

	s.logger.Info("recipe image uploaded",
		slog.Int64("recipeID", id),
		slog.String("key", key),
		slog.String("previous", previous),
		slog.Int("bytes", len(data)),
	)
	return s.Get(ctx, ownerID, id)
}

// checkImage reads the header for format and size, then decodes the whole
// image so truncated or corrupt pixel data is rejected too.
func checkImage(data []byte) (imageFormat, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return imageFormat{}, apperror.ValidationFailed("image", invalidImageMessage)
	}
	kind, ok := imageFormats[format]
	if !ok {
		return imageFormat{}, apperror.ValidationFailed("image", invalidImageMessage)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return imageFormat{}, apperror.ValidationFailed("image", invalidImageMessage)
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return imageFormat{}, apperror.ValidationFailed("image", invalidImageMessage)
	}
	return kind, nil
}

// resolveLabels sets r.Tags and r.Ingredients from in. A nil list resets
// the set when replace is true and keeps it otherwise.
func (s *RecipeService) resolveLabels(ctx context.Context, ownerID int64, r *model.Recipe, in RecipeInput, replace bool) error {
	fields := map[string]string{}

	if in.Tags != nil || replace {
		ids, msg, err := ownedIDs(ctx, s.tags, ownerID, in.Tags)
		if err != nil {
			return fmt.Errorf("service/recipe: checking tags: %w", err)
		}
		if msg != "" {
			fields["tags"] = msg
		}
		r.Tags = labelsFromIDs[model.Tag](ownerID, ids)
	}

	if in.Ingredients != nil || replace {
		ids, msg, err := ownedIDs(ctx, s.ingredients, ownerID, in.Ingredients)
		if err != nil {
			return fmt.Errorf("service/recipe: checking ingredients: %w", err)
		}
		if msg != "" {
			fields["ingredients"] = msg
		}
		r.Ingredients = labelsFromIDs[model.Ingredient](ownerID, ids)
	}

	if len(fields) > 0 {
		return apperror.ValidationFields(fields)
	}
	return nil
}

// ownedIDs dedups requested and checks each id exists and belongs to
// ownerID. msg describes the first bad id.
func ownedIDs[T model.Label](ctx context.Context, repo repository.LabelRepository[T], ownerID int64, requested *[]int64) ([]int64, string, error) {
	if requested == nil || len(*requested) == 0 {
		return nil, "", nil
	}

	want := slices.Clone(*requested)
	slices.Sort(want)
	want = slices.Compact(want)
	if len(want) > MaxLabelIDs {
		return nil, TooManyIDsMessage, nil
	}

	owned, err := repo.OwnedIDs(ctx, ownerID, want)
	if err != nil {
		return nil, "", err
	}
	for _, id := range want {
		if !slices.Contains(owned, id) {
			return nil, fmt.Sprintf("Invalid pk %q - object does not exist.", fmt.Sprint(id)), nil
		}
	}
	return want, "", nil
}

func labelsFromIDs[T model.Label](ownerID int64, ids []int64) []T {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.NewLabel[T](id, ownerID, ""))
	}
	return out
}

func trimInput(in *RecipeInput) {
	if in.Title != nil {
		t := strings.TrimSpace(*in.Title)
		in.Title = &t
	}
	if in.Link != nil {
		l := strings.TrimSpace(*in.Link)
		in.Link = &l
	}
}
