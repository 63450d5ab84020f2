package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/model"
)

// contextKey is unexported so no other package can read or shadow the
// values stored here.
type contextKey string

const userKey contextKey = "user"

// UserLoader resolves the token subject to an account.
type UserLoader interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// ErrorWriter renders a rejection. The server passes the handler package's
// JSON error writer so 401 bodies look like every other error.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// RequireAuth rejects the request with 401 unless it carries a valid bearer
// token for an existing, active user. On success the user is stored in the
// request context for UserFromContext.
func RequireAuth(tokens *TokenService, users UserLoader, fail ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				fail(w, r, apperror.Unauthenticated("Authentication credentials were not provided."))
				return
			}

			userID, err := tokens.Validate(raw)
			if err != nil {
				fail(w, r, apperror.Unauthenticated("Invalid token."))
				return
			}

			user, err := users.GetByID(r.Context(), userID)
			if err != nil {
				if errors.Is(err, apperror.ErrNotFound) {
					fail(w, r, apperror.Unauthenticated("Invalid token."))
					return
				}
				fail(w, r, err)
				return
			}
			if !user.IsActive {
				fail(w, r, apperror.Unauthenticated("User inactive or deleted."))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user. Handler tests use it to
// skip the token round trip.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or (nil, false) outside
// RequireAuth.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(userKey).(*model.User)
	return u, ok && u != nil
}

// UserIDFromContext is a shortcut for UserFromContext(ctx).ID.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	u, ok := UserFromContext(ctx)
	if !ok {
		return 0, false
	}
	return u.ID, true
}

// bearerToken extracts the credential from "Authorization: Bearer <t>".
// The "Token <t>" scheme is accepted as well. Scheme matching is
// case-insensitive.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found {
		return "", false
	}
	if !strings.EqualFold(scheme, "Bearer") && !strings.EqualFold(scheme, "Token") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
