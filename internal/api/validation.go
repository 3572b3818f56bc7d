package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator builds the shared validator, reporting fields by their JSON
// names so error details line up with the payload the client actually sent.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate checks a request struct against its validate tags. Returns nil on
// success or a field → message map for RespondValidationError.
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return map[string]string{"_": err.Error()}
	}

	out := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[fe.Field()] = failureMessage(fe)
	}
	return out
}

// failureMessage renders one failure in plain words, sized to the tags the
// request types use: required, oneof, uuid4, and min/max over strings,
// numbers and slices.
func failureMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "uuid4":
		return "must be a valid UUID"
	case "min":
		return boundMessage(fe, "at least")
	case "max":
		return boundMessage(fe, "at most")
	default:
		return "failed " + fe.Tag() + " validation"
	}
}

func boundMessage(fe validator.FieldError, bound string) string {
	switch fe.Kind() {
	case reflect.String:
		return fmt.Sprintf("must be %s %s characters", bound, fe.Param())
	case reflect.Slice, reflect.Array, reflect.Map:
		return fmt.Sprintf("must contain %s %s items", bound, fe.Param())
	default:
		return fmt.Sprintf("must be %s %s", bound, fe.Param())
	}
}
