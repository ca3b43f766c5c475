package services

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 错误信息使用 json 字段名
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateInput checks the validate tags of in and reports the first
// failing field as ErrValidation.
func validateInput(op string, in any) error {
	return fieldError(op, "", validate.Struct(in))
}

// validateField checks a single value against tag.
func validateField(op, name string, value any, tag string) error {
	return fieldError(op, name, validate.Var(value, tag))
}

func fieldError(op, name string, err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return newError(op, ErrValidation, "invalid input")
	}
	fe := fieldErrs[0]
	if name == "" {
		name = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return newError(op, ErrValidation, "%s is required", name)
	case "email":
		return newError(op, ErrValidation, "invalid email address")
	case "url":
		return newError(op, ErrValidation, "%s must be a URL", name)
	case "min":
		return newError(op, ErrValidation, "%s must have at least %s characters", name, fe.Param())
	case "max":
		return newError(op, ErrValidation, "%s is longer than %s characters", name, fe.Param())
	default:
		return newError(op, ErrValidation, "%s is invalid", name)
	}
}
