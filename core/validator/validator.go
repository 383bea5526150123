package validator

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationResult struct {
	Errors []FieldError `json:"errors"`
}

func (r *ValidationResult) HasError() bool {
	return r != nil && len(r.Errors) > 0
}

func (r *ValidationResult) Add(field, message string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: message})
}

var (
	once     sync.Once
	validate *validator.Validate

	clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = validate.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
			return clockPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Struct validates req against its `validate` tags.
func Struct(req any) *ValidationResult {
	result := &ValidationResult{}
	err := instance().Struct(req)
	if err == nil {
		return result
	}

	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		result.Add("", err.Error())
		return result
	}
	for _, fe := range verrs {
		result.Add(fe.Field(), messageFor(fe))
	}
	return result
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "clock":
		return "must be a HH:MM time"
	case "datetime":
		return fmt.Sprintf("must match layout %s", fe.Param())
	case "uuid", "uuid4":
		return "must be a uuid"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
