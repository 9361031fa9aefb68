package contact

import (
	"errors"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Code classifies why a field failed validation.
type Code string

const (
	Required      Code = "required"
	InvalidFormat Code = "invalid_format"
)

// Permissive structural check: something@something.something with no
// whitespace or extra @ in any part.
var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var messages = map[Field]map[Code]string{
	FieldName:    {Required: "Name is required"},
	FieldEmail:   {Required: "Email is required", InvalidFormat: "Please enter a valid email"},
	FieldMessage: {Required: "Message is required"},
}

// Errors maps each failing field to its code. An empty map means valid.
type Errors map[Field]Code

// Message returns the user-facing text for the field's error, or "".
func (e Errors) Message(f Field) string {
	code, ok := e[f]
	if !ok {
		return ""
	}
	if m, ok := messages[f][code]; ok {
		return m
	}
	return string(code)
}

// Messages returns every error as field name to text.
func (e Errors) Messages() map[string]string {
	out := make(map[string]string, len(e))
	for f := range e {
		out[string(f)] = e.Message(f)
	}
	return out
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, e.Message(Field(f)))
	}
	return "contact: invalid form: " + strings.Join(parts, "; ")
}

func (e Errors) clone() Errors {
	if e == nil {
		return nil
	}
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		_ = v.RegisterValidation("email_shape", func(fl validator.FieldLevel) bool {
			return emailShape.MatchString(fl.Field().String())
		})
		validate = v
	})
	return validate
}

// Validate checks f and returns the failing fields. Subject is optional and
// never fails.
func Validate(f Form) Errors {
	errs := Errors{}
	err := formValidator().Struct(f)
	if err == nil {
		return errs
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs
	}
	for _, fe := range verrs {
		field := Field(fe.Field())
		switch fe.Tag() {
		case "nonblank":
			errs[field] = Required
		default:
			errs[field] = InvalidFormat
		}
	}
	return errs
}
