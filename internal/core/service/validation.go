package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/orderdesk/orderdesk/internal/core/domain"
)

// inputMessages maps "<Struct>.<Field>.<tag>" to the caller-facing message.
var inputMessages = map[string]string{
	"CreateOrderInput.Title.required":    "Title is required",
	"UpdateOrderInput.ID.required":       "Order ID is required",
	"UpdateOrderInput.Title.min":         "Title cannot be empty",
	"AddOrderItemInput.OrderID.required": "Order ID is required",
	"AddOrderItemInput.Name.required":    "Item name is required",
	"AddOrderItemInput.Quantity.gt":      "Quantity must be greater than zero",
}

type inputValidator struct {
	v *validator.Validate
}

func newInputValidator() *inputValidator {
	return &inputValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// check returns a domain validation error carrying the first failure.
func (iv *inputValidator) check(in any) error {
	err := iv.v.Struct(in)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return domain.Validation(fieldMessage(ve[0]))
	}
	return fmt.Errorf("validate input: %w", err)
}

func fieldMessage(fe validator.FieldError) string {
	key := fe.StructNamespace() + "." + fe.Tag()
	if msg, ok := inputMessages[key]; ok {
		return msg
	}
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}
