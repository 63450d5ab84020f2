// Package validation runs struct-tag validation on service inputs and turns
// failures into apperror validation errors keyed by JSON field name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/sakif/recipe-api/internal/apperror"
	"github.com/sakif/recipe-api/internal/model"
)

// Validator wraps go-playground/validator. It is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	// Whitespace-only strings count as blank.
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(fmt.Sprintf("validation: registering notblank: %v", err))
	}

	// bcrypt reads at most 72 bytes, so password limits count bytes, not runes.
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(fmt.Sprintf("validation: registering maxbytes: %v", err))
	}

	if err := v.RegisterValidation("price", validPrice); err != nil {
		panic(fmt.Sprintf("validation: registering price: %v", err))
	}

	return &Validator{v: v}
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil || fl.Field().Kind() != reflect.String {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// validPrice bounds a hundredths amount to five digits in total.
func validPrice(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64:
		n := fl.Field().Int()
		return n > -int64(model.MaxPrice)-1 && n <= int64(model.MaxPrice)
	default:
		return false
	}
}

// Struct validates s. A failure is an *apperror.AppError wrapping
// apperror.ErrValidation with one entry per offending field.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validation: %w", err)
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, e := range fieldErrs {
		if _, seen := fields[e.Field()]; !seen {
			fields[e.Field()] = friendlyMessage(e)
		}
	}
	return apperror.ValidationFields(fields)
}

func friendlyMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required."
	case "notblank":
		return "This field may not be blank."
	case "email":
		return "Enter a valid email address."
	case "url":
		return "Enter a valid URL."
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %s characters.", e.Param())
		}
		return "Ensure this value is greater than or equal to " + e.Param() + "."
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", e.Param())
		}
		return "Ensure this value is less than or equal to " + e.Param() + "."
	case "maxbytes":
		return fmt.Sprintf("Ensure this field is no longer than %s bytes.", e.Param())
	case "price":
		return "Ensure that there are no more than 5 digits in total."
	case "gte":
		return "Ensure this value is greater than or equal to " + e.Param() + "."
	case "lte":
		return "Ensure this value is less than or equal to " + e.Param() + "."
	default:
		return "Invalid value."
	}
}
