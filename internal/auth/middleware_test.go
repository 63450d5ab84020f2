package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/model"
)

type fakeUsers map[int64]*model.User

func (f fakeUsers) GetByID(_ context.Context, id int64) (*model.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return u, nil
}

// recordingFail writes the status the real error writer would pick for
// the two error kinds this middleware produces.
func recordingFail(w http.ResponseWriter, _ *http.Request, err error) {
	if errors.Is(err, apperror.ErrUnauthenticated) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
}

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	users := fakeUsers{
		1: {ID: 1, Email: "active@example.com", IsActive: true},
		2: {ID: 2, Email: "inactive@example.com", IsActive: false},
	}

	good, _ := ts.Generate(1)
	inactive, _ := ts.Generate(2)
	ghost, _ := ts.Generate(99)
	expired, _ := ts.GenerateWithDuration(1, -time.Minute)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"bearer ok", "Bearer " + good, http.StatusOK},
		{"token scheme ok", "Token " + good, http.StatusOK},
		{"lowercase scheme ok", "bearer " + good, http.StatusOK},
		{"unknown scheme", "Basic " + good, http.StatusUnauthorized},
		{"scheme only", "Bearer", http.StatusUnauthorized},
		{"garbage token", "Bearer abc.def.ghi", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, http.StatusUnauthorized},
		{"inactive user", "Bearer " + inactive, http.StatusUnauthorized},
		{"deleted user", "Bearer " + ghost, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen int64
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				id, ok := UserIDFromContext(r.Context())
				require.True(t, ok)
				seen = id
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/user/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			RequireAuth(ts, users, recordingFail)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, int64(1), seen)
			}
		})
	}
}

func TestUserFromContext_Empty(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	id, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)
	assert.Zero(t, id)
}
