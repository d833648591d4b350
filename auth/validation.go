package auth

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jrsteele09/go-delivery-console/api"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// fieldMessages maps json field -> validation tag -> message shown next to the form field
var fieldMessages = map[string]map[string]string{
	"email": {
		"required": "Email is required",
		"email":    "Invalid email address",
	},
	"password": {
		"required": "Password is required",
		"min":      "Password must contain at least %s characters",
	},
	"latitude": {
		"latitude": "Latitude must be between -90 and 90",
	},
	"longitude": {
		"longitude": "Longitude must be between -180 and 180",
	},
}

// ValidateLogin checks the login form before anything is sent. It returns a *ValidationError.
func ValidateLogin(req api.LoginRequest) error {
	return validateStruct(&req)
}

// Validate checks any tagged request struct, passed by pointer, the way the login form is checked.
func Validate(req any) error {
	return validateStruct(req)
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return fmt.Errorf("validate: %w", err)
	}

	structType := reflect.TypeOf(s).Elem()
	fields := make(map[string]string, len(validationErrs))
	for _, e := range validationErrs {
		name := e.StructField()
		if field, ok := structType.FieldByName(e.StructField()); ok {
			if tag := strings.Split(field.Tag.Get("json"), ",")[0]; tag != "" {
				name = tag
			}
		}
		fields[name] = fieldMessage(name, e)
	}
	return &ValidationError{Fields: fields}
}

func fieldMessage(name string, e validator.FieldError) string {
	if msg, ok := fieldMessages[name][e.Tag()]; ok {
		if strings.Contains(msg, "%s") {
			return fmt.Sprintf(msg, e.Param())
		}
		return msg
	}
	return fmt.Sprintf("Field '%s' is invalid: %s", name, e.Tag())
}
