package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var initOnce sync.Once

// standalone backs Var for checks outside request binding.
var standalone = validator.New()

// Init configures the global validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Registers alias tags shared by request structs.
func Init() {
	initOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			configure(v)
		}
		configure(standalone)
	})
}

func configure(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// bcrypt ignores input beyond 72 bytes
	v.RegisterAlias("pwd", "min=6,max=72")
	v.RegisterAlias("mailaddr", "email,max=254")
}

// Var validates a single value against tag using the shared validator.
func Var(value any, tag string) error {
	Init()
	return standalone.Var(value, tag)
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = FieldMessage(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

// fixedMessages covers tags whose message ignores the parameter.
var fixedMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email",
	"mailaddr": "must be a valid email",
	"pwd":      "must be between 6 and 72 characters long",
	"numeric":  "must be a number",
	"number":   "must be a number",
}

// boundMessages covers comparison tags; strings get a "characters long" suffix.
var boundMessages = map[string]string{
	"min": "must be at least %s",
	"max": "must be at most %s",
	"gt":  "must be greater than %s",
	"gte": "must be greater than or equal to %s",
	"lt":  "must be less than %s",
	"lte": "must be less than or equal to %s",
}

// FieldMessage renders a human-friendly message for one failed tag.
func FieldMessage(fe validator.FieldError) string {
	if msg, ok := fixedMessages[fe.Tag()]; ok {
		return msg
	}
	param := fe.Param()
	if format, ok := boundMessages[fe.Tag()]; ok {
		msg := fmt.Sprintf(format, param)
		if fe.Kind() == reflect.String && (fe.Tag() == "min" || fe.Tag() == "max") {
			msg += " characters long"
		}
		return msg
	}
	if param != "" {
		return fmt.Sprintf("failed %q (%s)", fe.Tag(), param)
	}
	return fmt.Sprintf("failed %q", fe.Tag())
}
