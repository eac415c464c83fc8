package dto

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Currency fields accept either a 3-letter ISO alpha code ("USD") or the
// 3-digit numeric code link-based processors take ("840").
var currencyCodePattern = regexp.MustCompile(`^([A-Z]{3}|[0-9]{3})$`)

// RegisterValidators installs the custom binding validations. Call once at
// startup before serving requests.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("currencycode", func(fl validator.FieldLevel) bool {
		return currencyCodePattern.MatchString(fl.Field().String())
	})
}
