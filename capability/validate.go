package capability

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared struct validator with the capability rules
// registered:
//
//	capability  a "module:action" string
//	segment     a lowercase module or action name
//	rolename    a role identifier
//
// The rules apply to strings and, through "dive", to string slices.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("capability", func(fl validator.FieldLevel) bool {
			return capabilityPattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("segment", func(fl validator.FieldLevel) bool {
			return segmentPattern.MatchString(fl.Field().String())
		})
		_ = validate.RegisterValidation("rolename", func(fl validator.FieldLevel) bool {
			return roleNamePattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Struct validates v against its validate tags. Failures wrap ErrInvalid and
// name every offending field.
func Struct(v any) error {
	err := Validator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "capability":
		return fmt.Sprintf("%s %q must match module:action", field, fe.Value())
	case "segment":
		return fmt.Sprintf("%s %q must be lowercase letters only", field, fe.Value())
	case "rolename":
		return fmt.Sprintf("%s %q is not a valid role name", field, fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min", "max", "gte", "lte":
		return fmt.Sprintf("%s fails %s=%s", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s fails %s", field, fe.Tag())
	}
}
