package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/pauljones0/discogs-deals/internal/condition"
)

// Validator is a wrapper around the validator library.
type Validator struct {
	validate *validator.Validate
}

// New creates a new Validator instance with the project's custom tags
// registered.
func New() *Validator {
	v := validator.New()
	// condexpr: the field is a condition expression such as ">=VG+".
	_ = v.RegisterValidation("condexpr", func(fl validator.FieldLevel) bool {
		_, err := condition.ParseThreshold(fl.Field().String())
		return err == nil
	})
	return &Validator{validate: v}
}

// ValidateStruct validates a struct based on its tags.
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
