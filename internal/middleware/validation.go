package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yigit/hostelhub/internal/pkg/validation"
)

// RegisterValidators adds the domain tags (cnic, phone, bednumber) to gin's binding validator
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine %T", binding.Validator.Engine())
	}
	return registerRules(v)
}

func registerRules(v *validator.Validate) error {
	rules := map[string]func(string) bool{
		"cnic":      validation.IsCNIC,
		"phone":     validation.IsPhone,
		"bednumber": validation.IsBedNumber,
	}
	for tag, check := range rules {
		check := check
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return check(fl.Field().String())
		})
		if err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	return nil
}
