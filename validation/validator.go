package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"eventhub-api/utils"
)

var registerOnce sync.Once

// Register installs the custom tags on gin's validator engine and makes field
// errors report json names. Idempotent.
func Register() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(jsonFieldName)
		_ = v.RegisterValidation("username_chars", func(fl validator.FieldLevel) bool {
			return len(InvalidUsernameChars(fl.Field().String())) == 0
		})
	})
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}

// FromBindingError converts gin binding failures into a ValidationError with
// per-field messages. Malformed JSON becomes a single non-field error.
func FromBindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return utils.NewValidationError("Malformed request body: " + err.Error())
	}

	fields := utils.FieldErrors{}
	for _, fe := range verrs {
		fields.Add(fe.Field(), messageFor(fe))
	}
	return fields.Err()
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return "Ensure this field has no more than " + fe.Param() + " characters."
	case "min":
		if fe.Kind() == reflect.String {
			return "Ensure this field has at least " + fe.Param() + " characters."
		}
		return "Ensure this value is at least " + fe.Param() + "."
	case "email":
		return "Enter a valid email address."
	case "username_chars":
		if s, ok := fe.Value().(string); ok {
			if err := ValidateUsername(s); err != nil {
				return err.Error()
			}
		}
		return "Username contains invalid characters."
	default:
		return "Invalid value (" + fe.Tag() + ")."
	}
}
