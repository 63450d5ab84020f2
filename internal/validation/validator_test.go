package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/model"
)

type sample struct {
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"min=6,max=72"`
	Name     string      `json:"name" validate:"max=5"`
	Title    *string     `json:"title,omitempty" validate:"omitnil,notblank"`
	Minutes  int         `json:"time_minutes" validate:"gte=0"`
	Price    model.Price `json:"price" validate:"price"`
}

func TestStruct_Valid(t *testing.T) {
	v := New()
	title := "Soup"

	err := v.Struct(sample{Email: "a@example.com", Password: "secret", Title: &title})
	assert.NoError(t, err)
}

func TestStruct_FieldMessages(t *testing.T) {
	v := New()
	blank := "   "

	err := v.Struct(sample{
		Email:    "",
		Password: "x",
		Name:     "toolong",
		Title:    &blank,
		Minutes:  -1,
		Price:    100000,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrValidation))

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))

	assert.Equal(t, "This field is required.", appErr.Fields["email"])
	assert.Equal(t, "Ensure this field has at least 6 characters.", appErr.Fields["password"])
	assert.Equal(t, "Ensure this field has no more than 5 characters.", appErr.Fields["name"])
	assert.Equal(t, "This field may not be blank.", appErr.Fields["title"])
	assert.Equal(t, "Ensure this value is greater than or equal to 0.", appErr.Fields["time_minutes"])
	assert.Equal(t, "Ensure that there are no more than 5 digits in total.", appErr.Fields["price"])
}

func TestStruct_PriceBounds(t *testing.T) {
	v := New()

	for _, p := range []model.Price{0, 99999, -99999} {
		assert.NoError(t, v.Struct(sample{Email: "a@example.com", Password: "secret", Price: p}), "price %d", p)
	}
	assert.Error(t, v.Struct(sample{Email: "a@example.com", Password: "secret", Price: 100000}))
}

func TestStruct_BadEmail(t *testing.T) {
	v := New()

	err := v.Struct(sample{Email: "not-an-email", Password: "secret"})

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Enter a valid email address.", appErr.Fields["email"])
}

type secret struct {
	Password string `json:"password" validate:"maxbytes=72"`
}

func TestStruct_MaxBytes(t *testing.T) {
	v := New()

	assert.NoError(t, v.Struct(secret{Password: strings.Repeat("é", 36)}))

	err := v.Struct(secret{Password: strings.Repeat("é", 40)})
	require.ErrorIs(t, err, apperror.ErrValidation)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Ensure this field is no longer than 72 bytes.", appErr.Fields["password"])
}
