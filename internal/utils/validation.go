package utils

import (
	"errors"
	"net/url"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report fields under the names clients send.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "query"} {
			name, _, _ := strings.Cut(field.Tag.Get(tag), ",")
			if name != "" && name != "-" {
				return name
			}
		}
		return strings.ToLower(field.Name)
	})

	// httpurl: absolute http(s) URL with a host. Share links carry their keys in the
	// fragment, so fragments are allowed.
	v.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
		u, err := url.Parse(strings.TrimSpace(fl.Field().String()))
		if err != nil || u.Host == "" {
			return false
		}
		return u.Scheme == "http" || u.Scheme == "https"
	})

	return v
}

func Validate(s any) error {
	return validate.Struct(s)
}

// FormatValidationErrors maps each failing field to a client-facing message.
func FormatValidationErrors(err error) map[string]string {
	details := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return details
	}

	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			details[e.Field()] = "This field is required"
		case "max":
			details[e.Field()] = "Must be at most " + e.Param() + " characters"
		case "httpurl":
			details[e.Field()] = "Must be an absolute http or https URL"
		default:
			details[e.Field()] = "Invalid value"
		}
	}
	return details
}
