package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/snipero7/qr24-sub000/internal/constants"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return field.Name
			}
			return name
		})
		_ = v.RegisterValidation("order_status", func(fl validator.FieldLevel) bool {
			return isKnownOrderStatus(fl.Field().String())
		})
		_ = v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
			switch fl.Field().String() {
			case "", constants.PaymentMethodCash, constants.PaymentMethodTransfer:
				return true
			default:
				return false
			}
		})
		validate = v
	})
	return validate
}

// validateStruct 按 validate tag 校验，失败时返回 *ValidationError
func validateStruct(input interface{}) error {
	err := structValidator().Struct(input)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	result := &ValidationError{}
	for _, fe := range verrs {
		result.Add(fe.Field(), fe.Tag(), describeRule(fe))
	}
	return result
}

func describeRule(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	case "order_status":
		return "unknown status"
	case "payment_method":
		return "must be CASH or TRANSFER"
	default:
		return "is invalid"
	}
}
