package service

import (
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

func registerCredentialRules(v *validator.Validate) {
	_ = v.RegisterValidation("nowhitespace", func(fl validator.FieldLevel) bool {
		return strings.IndexFunc(fl.Field().String(), unicode.IsSpace) < 0
	})
	_ = v.RegisterValidation("hasletter", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if r < unicode.MaxASCII && unicode.IsLetter(r) {
				return true
			}
		}
		return false
	})
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		if err != nil {
			return false
		}
		return len(fl.Field().String()) <= limit
	})
}

var signupMessages = map[string]string{
	"Username.required":     "Username is required.",
	"Username.nowhitespace": "Username cannot contain spaces.",
	"Username.max":          "Username must be at most 64 characters long.",
	"Password.required":     "Password must be at least 6 characters long.",
	"Password.min":          "Password must be at least 6 characters long.",
	"Password.maxbytes":     "Password must be at most 72 characters long.",
	"Password.hasletter":    "Password must contain at least one letter.",
}

// signupMessage maps the first failed rule to the message shown on the form.
func signupMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		if msg, ok := signupMessages[first.StructField()+"."+first.Tag()]; ok {
			return msg
		}
	}
	return "Invalid signup details."
}
