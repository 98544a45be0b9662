// Package validate wraps go-playground/validator/v10 with the custom
// tags forgerun's descriptor struct fields need. Grounded on the
// teacher's internal/config/validator_instance.go singleton pattern.
package validate

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once sync.Once
	inst *validator.Validate

	stepIDPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_.-]*$`)
	semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(?:-[0-9A-Za-z-.]+)?(?:\+[0-9A-Za-z-.]+)?$`)
)

// Instance returns the shared, lazily-initialized validator used across
// the descriptor package, with forgerun's custom tags registered.
func Instance() *validator.Validate {
	once.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("step_id", func(fl validator.FieldLevel) bool {
			return stepIDPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("semver", func(fl validator.FieldLevel) bool {
			return semverPattern.MatchString(fl.Field().String())
		})

		_ = v.RegisterValidation("composition_kind", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case "atom", "seq", "par":
				return true
			default:
				return false
			}
		})

		inst = v
	})
	return inst
}

// Struct validates s against its validate tags using the shared instance.
func Struct(s interface{}) error {
	return Instance().Struct(s)
}
