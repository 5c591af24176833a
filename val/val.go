// Package val validates structs with go-playground/validator and reports failures as errx errors.
//
// Schema returns a unit.Action, so validation plugs directly into a query decorator as its
// pre-processing hook and runs before anything touches the store.
package val

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/code19m/errx"
	"github.com/go-playground/validator/v10"
	"github.com/rise-and-shine/persist/unit"
)

const (
	CodeValidationFailed = "VALIDATION_FAILED"
)

//nolint:gochecknoglobals // validator caches struct metadata and is safe for concurrent use
var getValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(getTagName)
	return v
})

// Schema returns a pre-processing action validating schema on every call.
// schema is usually a pointer so the action sees its current values.
func Schema(schema any) unit.Action {
	return func(context.Context) error {
		return ValidateSchema(schema)
	}
}

// ValidateSchema validates schema. Failed fields are reported in the error fields,
// keyed by their json, query or params tag name.
func ValidateSchema(schema any) error {
	err := getValidator().Struct(schema)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return errx.New(
			fmt.Sprintf("Unknown validation error: %s", err.Error()),
			errx.WithCode(CodeValidationFailed),
			errx.WithType(errx.T_Validation),
		)
	}

	fields := make(errx.M)
	for _, fieldErr := range validationErrors {
		fields[fieldErr.Field()] = describe(fieldErr)
	}

	return errx.New(
		"Validation failed. See fields for details.",
		errx.WithCode(CodeValidationFailed),
		errx.WithType(errx.T_Validation),
		errx.WithFields(fields),
	)
}

// getTagName returns the name of a struct field based on its json, query or params tag,
// falling back to the field name.
func getTagName(fld reflect.StructField) string {
	for _, tagName := range []string{"json", "query", "params"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tagName), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

//nolint:gochecknoglobals // read-only lookup table
var descriptions = map[string]string{
	"required": "This field is required",
	"email":    "Invalid email format",
	"gte":      "Must be greater than or equal to %s",
	"lte":      "Must be less than or equal to %s",
	"gt":       "Must be greater than %s",
	"lt":       "Must be less than %s",
	"alpha":    "Must contain only alphabetic characters",
	"alphanum": "Must contain only alphanumeric characters",
	"numeric":  "Must be a valid number",
	"eqfield":  "Must be equal to %s",
	"nefield":  "Must not be equal to %s",
	"url":      "Must be a valid URL",
	"uuid":     "Must be a valid UUID",
	"datetime": "Must be a valid datetime in format: %s",
}

func describe(fieldErr validator.FieldError) string {
	tag, param := fieldErr.Tag(), fieldErr.Param()
	isString := fieldErr.Kind() == reflect.String

	switch tag {
	case "min":
		if isString {
			return fmt.Sprintf("Must be at least %s characters", param)
		}
		return fmt.Sprintf("Must be at least %s", param)
	case "max":
		if isString {
			return fmt.Sprintf("Must be at most %s characters", param)
		}
		return fmt.Sprintf("Must be at most %s", param)
	case "len":
		if isString {
			return fmt.Sprintf("Must be exactly %s characters", param)
		}
		return fmt.Sprintf("Must have exactly %s items", param)
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", strings.ReplaceAll(param, " ", ", "))
	}

	if desc, ok := descriptions[tag]; ok {
		if strings.Contains(desc, "%s") {
			return fmt.Sprintf(desc, param)
		}
		return desc
	}

	return fmt.Sprintf("Failed validation: %s", tag)
}
