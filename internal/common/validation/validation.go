// Package validation turns go-playground/validator struct tags into
// validation_error domain errors with per-field messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	commonerrors "github.com/AlibekovAA/member-chat/internal/common/errors"
)

var (
	instance *validator.Validate
	once     sync.Once
)

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("pgtext", func(fl validator.FieldLevel) bool {
			return IsStorableText(fl.Field().String())
		})
		instance = v
	})
	return instance
}

// IsStorableText reports whether s can be stored in a Postgres text column:
// valid UTF-8 without NUL characters.
func IsStorableText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}

// Struct validates v and returns nil or a validation DomainError.
func Struct(v any) error {
	err := get().Struct(v)
	if err == nil {
		return nil
	}
	return translate(err, "")
}

// Field validates a single value under the given field name.
func Field(name string, value any, tag string) error {
	err := get().Var(value, tag)
	if err == nil {
		return nil
	}
	return translate(err, name)
}

func translate(err error, fieldName string) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return commonerrors.ErrValidation.WithField(commonerrors.NonFieldErrors, err.Error())
	}

	fields := make(map[string][]string, len(ve))
	for _, fe := range ve {
		name := fieldName
		if name == "" {
			name = fe.Field()
		}
		fields[name] = append(fields[name], message(fe))
	}
	return commonerrors.NewValidationError(fields)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	case "pgtext":
		return "Null characters are not allowed."
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}
