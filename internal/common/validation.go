package common

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	alphaNumDashRegex = regexp.MustCompile(`^[a-zA-Z0-9-]+$`)
	usernameRegex     = regexp.MustCompile(`^[a-z0-9_]{3,30}$`)
)

// RegisterValidators installs the custom binding tags used by request structs.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	if err := v.RegisterValidation("alphanumdash", func(fl validator.FieldLevel) bool {
		return alphaNumDashRegex.MatchString(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return IsValidUsername(fl.Field().String())
	})
}

// IsValidUsername reports whether s is a lowercase handle of 3 to 30 characters.
func IsValidUsername(s string) bool {
	return usernameRegex.MatchString(s)
}
