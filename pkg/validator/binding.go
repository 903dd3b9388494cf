package validator

import (
	"fmt"

	"github.com/bakano/consultancy-backend/internal/models"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// BusinessTypeTag is the struct tag that checks a field holds a known business type.
// Empty values pass; combine with "required" when the field is mandatory.
const BusinessTypeTag = "business_type"

// RegisterBindings installs the custom validation tags on gin's validator engine
func RegisterBindings() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
	}
	return Register(v)
}

// Register installs the custom validation tags on a validator instance
func Register(v *validator.Validate) error {
	if err := v.RegisterValidation(BusinessTypeTag, validateBusinessType); err != nil {
		return fmt.Errorf("failed to register %s validation: %w", BusinessTypeTag, err)
	}
	return nil
}

func validateBusinessType(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	return models.BusinessType(value).IsValid()
}
