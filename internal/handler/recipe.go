package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/auth"
	"github.com/sakif/recipe-api/internal/model"
	"github.com/sakif/recipe-api/internal/repository"
	"github.com/sakif/recipe-api/internal/service"
)

// multipartOverhead is allowed on top of the image limit for boundaries and
// part headers.
const multipartOverhead = 64 << 10

// RecipeHandler serves /recipe/recipes.
//
//	GET    /                    → HandleList (?tags=1,2&ingredients=3)
//	POST   /                    → HandleCreate
//	GET    /{id}                → HandleGet
//	PUT    /{id}                → HandleReplace
//	PATCH  /{id}                → HandlePatch
//	DELETE /{id}                → HandleDelete
//	POST   /{id}/upload-image   → HandleUploadImage (PATCH too)
type RecipeHandler struct {
	recipes *service.RecipeService
	logger  *slog.Logger
}

func NewRecipeHandler(recipes *service.RecipeService, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, logger: logger}
}

// recipeResponse is the list, create and update shape: associations as ids.
type recipeResponse struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	TimeMinutes int         `json:"time_minutes"`
	Price       model.Price `json:"price"`
	Link        string      `json:"link"`
	Tags        []int64     `json:"tags"`
	Ingredients []int64     `json:"ingredients"`
}

// recipeDetailResponse nests associations and adds the image URL.
type recipeDetailResponse struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	TimeMinutes int                `json:"time_minutes"`
	Price       model.Price        `json:"price"`
	Link        string             `json:"link"`
	Tags        []model.Tag        `json:"tags"`
	Ingredients []model.Ingredient `json:"ingredients"`
	Image       *string            `json:"image"`
}

type recipeImageResponse struct {
	ID    int64  `json:"id"`
	Image string `json:"image"`
}

func toRecipeResponse(r *model.Recipe) recipeResponse {
	return recipeResponse{
		ID:          r.ID,
		Title:       r.Title,
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price,
		Link:        r.Link,
		Tags:        r.TagIDs(),
		Ingredients: r.IngredientIDs(),
	}
}

func (h *RecipeHandler) toDetail(r *model.Recipe) recipeDetailResponse {
	resp := recipeDetailResponse{
		ID:          r.ID,
		Title:       r.Title,
		TimeMinutes: r.TimeMinutes,
		Price:       r.Price,
		Link:        r.Link,
		Tags:        r.Tags,
		Ingredients: r.Ingredients,
	}
	if resp.Tags == nil {
		resp.Tags = []model.Tag{}
	}
	if resp.Ingredients == nil {
		resp.Ingredients = []model.Ingredient{}
	}
	if url := h.recipes.ImageURL(r.Image); url != "" {
		resp.Image = &url
	}
	return resp
}

func (h *RecipeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, r, apperror.Unauthenticated("Authentication credentials were not provided."))
		return
	}

	tagIDs, err := parseIDList(r, "tags")
	if err != nil {
		WriteError(w, r, err)
		return
	}
	ingredientIDs, err := parseIDList(r, "ingredients")
	if err != nil {
		WriteError(w, r, err)
		return
	}

	recipes, err := h.recipes.List(r.Context(), ownerID, repository.RecipeFilter{
		TagIDs:        tagIDs,
		IngredientIDs: ingredientIDs,
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}

	resp := make([]recipeResponse, 0, len(recipes))
	for i := range recipes {
		resp = append(resp, toRecipeResponse(&recipes[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *RecipeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, r, apperror.Unauthenticated("Authentication credentials were not provided."))
		return
	}

	var in service.RecipeInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}

	recipe, err := h.recipes.Create(r.Context(), ownerID, in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecipeResponse(recipe))
}

func (h *RecipeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ownerID, id, ok := h.target(w, r)
	if !ok {
		return
	}

	recipe, err := h.recipes.Get(r.Context(), ownerID, id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toDetail(recipe))
}

// HandleReplace is PUT: every required field must be present and the tag
// and ingredient sets become exactly what was sent.
func (h *RecipeHandler) HandleReplace(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// HandlePatch is PATCH: only the supplied fields change.
func (h *RecipeHandler) HandlePatch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *RecipeHandler) update(w http.ResponseWriter, r *http.Request, partial bool) {
	ownerID, id, ok := h.target(w, r)
	if !ok {
		return
	}

	var in service.RecipeInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}

	recipe, err := h.recipes.Update(r.Context(), ownerID, id, in, partial)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecipeResponse(recipe))
}

func (h *RecipeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ownerID, id, ok := h.target(w, r)
	if !ok {
		return
	}

	if err := h.recipes.Delete(r.Context(), ownerID, id); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleUploadImage reads the multipart field "image" and attaches it.
func (h *RecipeHandler) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	ownerID, id, ok := h.target(w, r)
	if !ok {
		return
	}

	limit := int64(h.recipes.MaxImageBytes())
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, r, apperror.ValidationFailed("image", "The submitted file is too large."))
			return
		}
		WriteError(w, r, apperror.ValidationFailed("image", "The submitted data was not a file. Check the encoding type on the form."))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("image")
	if err != nil {
		WriteError(w, r, apperror.ValidationFailed("image", "No file was submitted."))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		WriteError(w, r, err)
		return
	}

	recipe, err := h.recipes.UploadImage(r.Context(), ownerID, id, data)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipeImageResponse{
		ID:    recipe.ID,
		Image: h.recipes.ImageURL(recipe.Image),
	})
}

// target resolves the caller and the {id} path parameter. A non-numeric id
// is a 404, like any other id that matches no recipe.
func (h *RecipeHandler) target(w http.ResponseWriter, r *http.Request) (ownerID, id int64, ok bool) {
	ownerID, ok = auth.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, r, apperror.Unauthenticated("Authentication credentials were not provided."))
		return 0, 0, false
	}

	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, r, apperror.NotFound("recipe", raw))
		return 0, 0, false
	}
	return ownerID, id, true
}

// parseIDList parses a comma-separated id list such as "1,2,3" into sorted
// distinct ids. An absent or empty parameter yields nil.
func parseIDList(r *http.Request, name string) ([]int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, apperror.ValidationFailed(name, "Must be a comma-separated list of integer ids.")
		}
		ids = append(ids, id)
	}

	slices.Sort(ids)
	ids = slices.Compact(ids)
	if len(ids) > service.MaxLabelIDs {
		return nil, apperror.ValidationFailed(name, service.TooManyIDsMessage)
	}
	return ids, nil
}
