package application

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return field.Name
		}
		return name
	})
	return v
}

// validateStruct runs the struct tag rules and reports failures per field.
func validateStruct(input any) *ValidationError {
	vErr := &ValidationError{}

	err := validate.Struct(input)
	if err == nil {
		return vErr
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		vErr.add("request", "la solicitud no es válida")
		return vErr
	}
	for _, fe := range fieldErrs {
		vErr.add(fe.Field(), fieldMessage(fe))
	}
	return vErr
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return MessageRequired
	case "email":
		return "debe ser un correo electrónico válido"
	case "gt":
		return "debe ser mayor que " + fe.Param()
	case "gte":
		return "debe ser mayor o igual que " + fe.Param()
	case "max":
		return "no puede superar " + fe.Param() + " caracteres"
	}
	return "no es válido"
}

// MessageRequired is the field message recorded for missing required fields.
const MessageRequired = "es obligatorio"

// MissingRequired reports whether any field failed only because it was absent.
func (v *ValidationError) MissingRequired() bool {
	if v == nil {
		return false
	}
	for _, message := range v.FieldErrors {
		if message == MessageRequired {
			return true
		}
	}
	return false
}

func trimOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// storeContext bounds one store round trip. A non-positive timeout leaves ctx unchanged.
func storeContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

// storeFailure maps err and marks it as a timeout when the store deadline expired.
func storeFailure(ctx context.Context, op string, err error) error {
	mapped := mapStoreError(op, err)
	var sErr *StoreError
	if errors.As(mapped, &sErr) && !sErr.timeout && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		sErr.timeout = true
	}
	return mapped
}
