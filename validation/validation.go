package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/kbukum/scribe/errors"
)

// FieldError is one entry of the "fields" detail.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New(validator.WithRequiredStructEnabled())
	// Name fields the way clients send them.
	val.RegisterTagNameFunc(func(f reflect.StructField) string {
		return jsonName(f)
	})
	return val
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	return name
}

// messages are keyed by validator tag; %s receives the tag parameter.
var messages = map[string]string{
	"required":         "is required",
	"required_without": "is required when %s is empty",
	"min":              "must be at least %s",
	"max":              "must be at most %s",
	"gt":               "must be greater than %s",
	"url":              "must be a valid URL",
	"http_url":         "must be a valid URL",
	"oneof":            "must be one of: %s",
}

// Validate checks the `validate` tags of s. Failures become one 400
// AppError that lists every field under Details["fields"].
func Validate(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.Validation("validation failed").WithCause(err)
	}

	fields := make([]FieldError, len(verrs))
	summary := make([]string, len(verrs))
	for i, fe := range verrs {
		fields[i] = FieldError{Field: fe.Field(), Message: describe(s, fe)}
		summary[i] = fields[i].Field + " " + fields[i].Message
	}
	return apperrors.Validation(strings.Join(summary, "; ")).WithDetail("fields", fields)
}

func describe(s any, fe validator.FieldError) string {
	tmpl, ok := messages[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	if !strings.Contains(tmpl, "%s") {
		return tmpl
	}
	param := fe.Param()
	if fe.Tag() == "required_without" {
		param = siblingName(s, param)
	}
	return fmt.Sprintf(tmpl, param)
}

// siblingName maps a Go field name used as a tag parameter to the name
// clients see.
func siblingName(s any, goName string) string {
	t := reflect.TypeOf(s)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Kind() == reflect.Struct {
		if f, ok := t.FieldByName(goName); ok {
			return jsonName(f)
		}
	}
	return goName
}
