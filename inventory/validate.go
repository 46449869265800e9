package inventory

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidator()

// decimalRules compare decimal.Decimal fields exactly, never through float64.
var decimalRules = map[string]func(decimal.Decimal) bool{
	"dgt0":  decimal.Decimal.IsPositive,
	"dgte0": func(d decimal.Decimal) bool { return !d.IsNegative() },
}

func newValidator() *validator.Validate {
	v := validator.New()
	for tag, rule := range decimalRules {
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			d, ok := fl.Field().Interface().(decimal.Decimal)
			return ok && rule(d)
		})
		if err != nil {
			panic(fmt.Sprintf("register %s: %v", tag, err))
		}
	}
	return v
}

// Validate checks a transaction payload. Returns a *ValidationError listing
// every invalid field, or nil.
func (in TransactionInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidTransaction, err)
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return &ValidationError{Record: "transaction", Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required for a " + lastWord(fe.Param())
	case "excluded_if":
		return "must be empty for a " + lastWord(fe.Param())
	case "oneof":
		return "must be one of: " + fe.Param()
	case "dgt0":
		return "must be greater than 0"
	case "dgte0":
		return "must be at least 0"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return fe.Error()
}

// lastWord turns a "Kind sale" condition into "sale".
func lastWord(param string) string {
	for i := len(param) - 1; i >= 0; i-- {
		if param[i] == ' ' {
			return param[i+1:]
		}
	}
	return param
}
