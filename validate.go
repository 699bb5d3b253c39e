package api

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SelfValidator is implemented by request types that validate themselves.
// It runs after schema validation and projection, before the handler.
type SelfValidator interface {
	Validate() error
}

// Validator validates any projected request.
type Validator interface {
	Validate(req any) error
}

// structValidator checks `validate:"..."` struct tags on projected requests.
type structValidator struct {
	v *validator.Validate
}

// StructValidator returns a Validator that enforces go-playground
// `validate` tags on request types. Violations are reported as a 400
// ProblemDetail using the same field paths as schema violations.
func StructValidator() Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range paramTags {
			if name := f.Tag.Get(tag); name != "" {
				return tag + "." + name
			}
		}
		if f.Name == bodyField {
			return "body"
		}
		name := jsonFieldName(f)
		if name == "-" {
			return ""
		}
		return name
	})
	return &structValidator{v: v}
}

func (s *structValidator) Validate(req any) error {
	err := s.v.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			// Not a struct; nothing to check.
			return nil
		}
		return err
	}

	errs := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		// Namespace is "Type.field.sub"; drop the type name.
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		msg := "failed on " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		errs.add(field, fe.Tag(), msg, fe.Value())
	}
	return validationProblem(errs)
}
