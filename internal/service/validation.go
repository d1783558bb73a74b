package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"jobshop/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs tag validation and converts failures into a model.ValidationError.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate request: %w", err)
	}

	out := &model.ValidationError{}
	for _, fe := range fieldErrs {
		out.Violations = append(out.Violations, model.Violation{
			Field:   fe.Field(),
			Message: violationMessage(fe),
		})
	}
	return out
}

func violationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "alpha":
		return "must contain letters only"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "is invalid"
	}
}

// DecodeJSON unmarshals a request body. Syntax errors map to model.ErrInvalidJSON,
// well-formed JSON with wrongly typed fields maps to a validation error.
func DecodeJSON(raw []byte, dst any) error {
	err := json.Unmarshal(raw, dst)
	if err == nil {
		return nil
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return model.NewValidationError("body", "must be a JSON object")
		}
		return model.NewValidationError(typeErr.Field, "must be of type "+typeErr.Type.String())
	}

	return model.ErrInvalidJSON
}

// isClientError reports whether err should reach the caller as is.
func isClientError(err error) bool {
	var domainErr *model.DomainError
	var validationErr *model.ValidationError
	return errors.As(err, &domainErr) || errors.As(err, &validationErr)
}

// critical starts an error event flagged for alerting.
func critical(logger zerolog.Logger) *zerolog.Event {
	return logger.Error().Str("severity", "critical")
}
