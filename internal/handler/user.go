package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/auth"
	"github.com/sakif/recipe-api/internal/model"
	"github.com/sakif/recipe-api/internal/service"
)

// UserHandler serves signup, token issuance and the caller's profile.
//
//	POST  /user/create → HandleCreate
//	POST  /user/token  → HandleToken
//	GET   /user/me     → HandleMe
//	PATCH /user/me     → HandleUpdateMe
type UserHandler struct {
	users  *service.UserService
	logger *slog.Logger
}

func NewUserHandler(users *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// userResponse never carries the password or its hash.
type userResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{Email: u.Email, Name: u.Name}
}

// HandleCreate registers an account.
//
// REQUEST BODY: {"email": "...", "password": "...", "name": "..."}
// RESPONSE:     201 {"email": "...", "name": "..."}
func (h *UserHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}

	user, err := h.users.Register(r.Context(), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

// HandleToken exchanges email and password for a bearer token. Bad
// credentials are a 400 with a non_field_errors entry.
func (h *UserHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var in service.Credentials
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}

	token, err := h.users.Authenticate(r.Context(), in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, r, apperror.Unauthenticated("Authentication credentials were not provided."))
		return
	}

	user, err := h.users.Profile(r.Context(), id)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// HandleUpdateMe applies a partial profile update. A new password is
// re-hashed before it is stored.
func (h *UserHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		WriteError(w, r, apperror.Unauthenticated("Authentication credentials were not provided."))
		return
	}

	var in service.ProfileUpdate
	if err := decodeJSON(w, r, &in); err != nil {
		WriteError(w, r, err)
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), id, in)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}
