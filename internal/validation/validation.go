package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	phonePattern = regexp.MustCompile(`^\+?1?\d{9,15}$`)
	innPattern   = regexp.MustCompile(`^\d{10,12}$`)
)

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Errors carries every failed field of one request.
type Errors struct {
	Fields []FieldError
}

func (e *Errors) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Code)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Field builds a single-field validation error.
func Field(field, code, message string) error {
	return &Errors{Fields: []FieldError{{Field: field, Code: code, Message: message}}}
}

func ValidPhone(value string) bool { return phonePattern.MatchString(value) }

func ValidINN(value string) bool { return innPattern.MatchString(value) }

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return ValidPhone(fl.Field().String())
		})
		_ = validate.RegisterValidation("inn", func(fl validator.FieldLevel) bool {
			return ValidINN(fl.Field().String())
		})
		_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	})
	return validate
}

// Struct validates v against its `validate` tags.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &Errors{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		code, message := describe(fe)
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Code: code, Message: message})
	}
	return out
}

func describe(fe validator.FieldError) (string, string) {
	switch fe.Tag() {
	case "required", "notblank":
		return "required", "field is required"
	case "phone":
		return "invalid_phone", "phone must be 9 to 15 digits with an optional leading +"
	case "inn":
		return "invalid_inn", "inn must be 10 to 12 digits"
	case "oneof":
		return "invalid_choice", fmt.Sprintf("must be one of: %s", fe.Param())
	case "gte", "min":
		return "out_of_range", fmt.Sprintf("must be at least %s", fe.Param())
	case "lte", "max":
		return "out_of_range", fmt.Sprintf("must be at most %s", fe.Param())
	default:
		return "invalid_" + fe.Tag(), "invalid value"
	}
}
