// Package validation runs struct-tag validation on service inputs and renders
// field-scoped messages.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/wishwall/wishwall-backend/pkg/errors"
)

const (
	tagRuneMin = "runemin"
	tagRuneMax = "runemax"
	tagWebURL  = "weburl"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation(tagRuneMin, runeBound(func(n, limit int) bool { return n >= limit }))
	_ = v.RegisterValidation(tagRuneMax, runeBound(func(n, limit int) bool { return n <= limit }))
	_ = v.RegisterValidation(tagWebURL, func(fl validator.FieldLevel) bool {
		return IsWebURL(fl.Field().String())
	})
	return v
}

// runeBound counts characters after trimming so multi-byte scripts are measured
// the way users see them.
func runeBound(cmp func(n, limit int) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return cmp(utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())), limit)
	}
}

// IsWebURL accepts an empty string or an absolute http(s) URL with a host.
func IsWebURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return true
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// Struct validates v and returns a CodeValidation error whose details map each
// failing field to its message, or nil.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		details := make(map[string]string, len(errs))
		for _, fieldErr := range errs {
			if _, exists := details[fieldErr.Field()]; exists {
				continue
			}
			details[fieldErr.Field()] = Message(fieldErr)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

// Message renders one field error.
func Message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case tagRuneMin, "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case tagRuneMax, "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case tagWebURL:
		return fmt.Sprintf("%s must be a valid http(s) URL", field)
	}
	return fmt.Sprintf("%s is invalid", field)
}

// Field returns a single-field validation error in the same shape as Struct.
func Field(field, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{field: message})
}

// NullableTrim trims s and maps blank input to nil.
func NullableTrim(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
