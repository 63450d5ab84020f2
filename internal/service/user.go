package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/auth"
	"github.com/sakif/recipe-api/internal/model"
	"github.com/sakif/recipe-api/internal/repository"
	"github.com/sakif/recipe-api/internal/validation"
)

const emailTakenMessage = "user with this email already exists."

// UserService owns accounts: signup, login and the caller's profile.
//
//	UserHandler → UserService → UserRepository
//	                          ↘ TokenService, PasswordService
type UserService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	validate  *validation.Validator
	logger    *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	validate *validation.Validator,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		validate:  validate,
		logger:    logger,
	}
}

// RegisterInput is the signup payload. Name is optional.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,maxbytes=72"`
	Name     string `json:"name" validate:"max=255"`
}

// Credentials is the login payload.
type Credentials struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
}

// ProfileUpdate is a partial profile change; nil fields are left alone.
type ProfileUpdate struct {
	Email    *string `json:"email" validate:"omitnil,required,email,max=255"`
	Name     *string `json:"name" validate:"omitnil,max=255"`
	Password *string `json:"password" validate:"omitnil,min=6,maxbytes=72"`
}

// NormalizeEmail lowercases the domain part and leaves the local part as
// typed: "Test2@Example.com" becomes "Test2@example.com".
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at] + strings.ToLower(email[at:])
}

// Register creates an ordinary active account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	user, err := s.create(ctx, in, false)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", slog.Int64("userID", user.ID))
	return user, nil
}

// CreateSuperuser creates an active staff superuser. Used by the manage CLI.
func (s *UserService) CreateSuperuser(ctx context.Context, email, password string) (*model.User, error) {
	user, err := s.create(ctx, RegisterInput{Email: email, Password: password}, true)
	if err != nil {
		return nil, err
	}
	s.logger.Info("superuser created", slog.Int64("userID", user.ID))
	return user, nil
}

func (s *UserService) create(ctx context.Context, in RegisterInput, superuser bool) (*model.User, error) {
	in.Email = NormalizeEmail(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	if err := s.ensureEmailFree(ctx, in.Email, 0); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/user: %w", err)
	}

	user := &model.User{
		Email:        in.Email,
		Name:         in.Name,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      superuser,
		IsSuperuser:  superuser,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFailed("email", emailTakenMessage)
		}
		return nil, fmt.Errorf("service/user: creating user: %w", err)
	}
	return user, nil
}

// ensureEmailFree fails with a field error when email belongs to an account
// other than selfID.
func (s *UserService) ensureEmailFree(ctx context.Context, email string, selfID int64) error {
	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("service/user: checking email: %w", err)
	case existing.ID != selfID:
		return apperror.ValidationFailed("email", emailTakenMessage)
	default:
		return nil
	}
}

// Authenticate checks credentials and returns a signed bearer token. Unknown
// email, wrong password and inactive account all produce the same
// apperror.ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, in Credentials) (string, error) {
	if err := s.validate.Struct(in); err != nil {
		return "", err
	}

	user, err := s.users.GetByEmail(ctx, NormalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			_ = s.passwords.VerifyMissing(in.Password)
			return "", apperror.InvalidCredentials()
		}
		return "", fmt.Errorf("service/user: looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return "", apperror.InvalidCredentials()
		}
		return "", fmt.Errorf("service/user: %w", err)
	}
	if !user.IsActive {
		return "", apperror.InvalidCredentials()
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", fmt.Errorf("service/user: generating token for user %d: %w", user.ID, err)
	}

	s.logger.Info("token issued", slog.Int64("userID", user.ID))
	return token, nil
}

func (s *UserService) Profile(ctx context.Context, userID int64) (*model.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: loading profile: %w", err)
	}
	return user, nil
}

// UpdateProfile applies the non-nil fields of in. A new password is
// re-hashed; a new email must not belong to another account.
func (s *UserService) UpdateProfile(ctx context.Context, userID int64, in ProfileUpdate) (*model.User, error) {
	if in.Email != nil {
		normalized := NormalizeEmail(*in.Email)
		in.Email = &normalized
	}
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: loading profile: %w", err)
	}

	if in.Email != nil && *in.Email != user.Email {
		if err := s.ensureEmailFree(ctx, *in.Email, user.ID); err != nil {
			return nil, err
		}
		user.Email = *in.Email
	}
	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Password != nil {
		hash, err := s.passwords.Hash(*in.Password)
		if err != nil {
			return nil, fmt.Errorf("service/user: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFailed("email", emailTakenMessage)
		}
		return nil, fmt.Errorf("service/user: updating profile: %w", err)
	}

	s.logger.Info("profile updated", slog.Int64("userID", user.ID))
	return user, nil
}
