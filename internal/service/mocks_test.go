package service

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sort"
	"testing"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/auth"
	"github.com/sakif/recipe-api/internal/model"
	"github.com/sakif/recipe-api/internal/repository"
	"github.com/sakif/recipe-api/internal/storage"
	"github.com/sakif/recipe-api/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

// =========================================================================
// MOCK REPOSITORIES
// =========================================================================
//
// Hand-written in-memory implementations of the repository interfaces.
// They return copies so tests cannot mutate stored state by accident.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockUserRepo struct {
	users  map[int64]*model.User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *model.User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return apperror.Conflict("user", u.Email)
		}
	}
	m.nextID++
	u.ID = m.nextID
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	out := *u
	return &out, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) Update(_ context.Context, u *model.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return apperror.NotFound("user", u.ID)
	}
	stored := *u
	m.users[u.ID] = &stored
	return nil
}

type mockLabelRepo[T model.Label] struct {
	labels map[int64]T
	owners map[int64]int64
	nextID int64
}

func newMockLabelRepo[T model.Label]() *mockLabelRepo[T] {
	return &mockLabelRepo[T]{labels: map[int64]T{}, owners: map[int64]int64{}}
}

func (m *mockLabelRepo[T]) ListByOwner(_ context.Context, ownerID int64, _ repository.LabelListOptions) ([]T, error) {
	out := make([]T, 0)
	for id, l := range m.labels {
		if m.owners[id] == ownerID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return model.LabelID(out[i]) > model.LabelID(out[j]) })
	return out, nil
}

func (m *mockLabelRepo[T]) Create(_ context.Context, ownerID int64, name string) (*T, error) {
	m.nextID++
	l := model.NewLabel[T](m.nextID, ownerID, name)
	m.labels[m.nextID] = l
	m.owners[m.nextID] = ownerID
	return &l, nil
}

func (m *mockLabelRepo[T]) OwnedIDs(_ context.Context, ownerID int64, ids []int64) ([]int64, error) {
	var out []int64
	for _, id := range ids {
		if owner, ok := m.owners[id]; ok && owner == ownerID && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out, nil
}

type mockRecipeRepo struct {
	recipes map[int64]*model.Recipe
	nextID  int64

	setImageErr error
}

func newMockRecipeRepo() *mockRecipeRepo {
	return &mockRecipeRepo{recipes: map[int64]*model.Recipe{}}
}

func (m *mockRecipeRepo) ListByOwner(_ context.Context, ownerID int64, _ repository.RecipeFilter) ([]model.Recipe, error) {
	out := make([]model.Recipe, 0)
	for _, r := range m.recipes {
		if r.UserID == ownerID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockRecipeRepo) GetByID(_ context.Context, ownerID, id int64) (*model.Recipe, error) {
	r, ok := m.recipes[id]
	if !ok || r.UserID != ownerID {
		return nil, apperror.NotFound("recipe", id)
	}
	out := *r
	return &out, nil
}

func (m *mockRecipeRepo) Create(_ context.Context, r *model.Recipe) error {
	m.nextID++
	r.ID = m.nextID
	stored := *r
	m.recipes[r.ID] = &stored
	return nil
}

func (m *mockRecipeRepo) Update(_ context.Context, r *model.Recipe) error {
	existing, ok := m.recipes[r.ID]
	if !ok || existing.UserID != r.UserID {
		return apperror.NotFound("recipe", r.ID)
	}
	stored := *r
	stored.Image = existing.Image
	m.recipes[r.ID] = &stored
	return nil
}

func (m *mockRecipeRepo) SetImage(_ context.Context, ownerID, id int64, image string) (string, error) {
	if m.setImageErr != nil {
		return "", m.setImageErr
	}
	r, ok := m.recipes[id]
	if !ok || r.UserID != ownerID {
		return "", apperror.NotFound("recipe", id)
	}
	prev := r.Image
	r.Image = image
	return prev, nil
}

func (m *mockRecipeRepo) Delete(_ context.Context, ownerID, id int64) (string, error) {
	r, ok := m.recipes[id]
	if !ok || r.UserID != ownerID {
		return "", apperror.NotFound("recipe", id)
	}
	delete(m.recipes, id)
	return r.Image, nil
}

// mockStore is an in-memory storage.Store.
type mockStore struct {
	files   map[string][]byte
	types   map[string]string
	deleted []string
}

var _ storage.Store = (*mockStore)(nil)

func newMockStore() *mockStore {
	return &mockStore{files: map[string][]byte{}, types: map[string]string{}}
}

func (m *mockStore) Save(_ context.Context, key string, data []byte, contentType string) error {
	m.files[key] = data
	m.types[key] = contentType
	return nil
}

func (m *mockStore) Delete(_ context.Context, key string) error {
	delete(m.files, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *mockStore) URL(key string) string {
	return "/media/" + key
}

// =========================================================================
// SERVICE CONSTRUCTORS
// =========================================================================

func newTestUserService(t *testing.T) (*UserService, *mockUserRepo, *auth.TokenService) {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	repo := newMockUserRepo()
	svc := NewUserService(repo, tokens, auth.NewPasswordServiceWithCost(bcrypt.MinCost), validation.New(), discardLogger())
	return svc, repo, tokens
}

type recipeFixture struct {
	svc         *RecipeService
	recipes     *mockRecipeRepo
	tags        *mockLabelRepo[model.Tag]
	ingredients *mockLabelRepo[model.Ingredient]
	store       *mockStore
}

func newRecipeFixture() *recipeFixture {
	f := &recipeFixture{
		recipes:     newMockRecipeRepo(),
		tags:        newMockLabelRepo[model.Tag](),
		ingredients: newMockLabelRepo[model.Ingredient](),
		store:       newMockStore(),
	}
	f.svc = NewRecipeService(f.recipes, f.tags, f.ingredients, f.store, validation.New(), discardLogger(), 1<<20)
	return f
}
