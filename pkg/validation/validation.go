// Package validation builds the request validator shared by the SDK packages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/chain"
)

// New returns a validator with the SDK tags registered:
//
//	decimal_gt0       decimal strictly greater than zero
//	decimal_gte0      decimal greater than or equal to zero
//	address=<chain>   well-formed address on chain, e.g. address=solana
//	evm_address       well-formed 0x address
func New() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())

	// Decimals are validated through their string form.
	validate.RegisterCustomTypeFunc(func(v reflect.Value) any {
		if d, ok := v.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	must(validate.RegisterValidation("decimal_gt0", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	}))
	must(validate.RegisterValidation("decimal_gte0", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative()
	}))
	must(validate.RegisterValidation("address", func(fl validator.FieldLevel) bool {
		return chain.ValidateAddress(chain.Chain(fl.Param()), fl.Field().String()) == nil
	}))
	must(validate.RegisterValidation("evm_address", func(fl validator.FieldLevel) bool {
		return chain.ValidateAddress(chain.Ethereum, fl.Field().String()) == nil
	}))
	return validate
}

func must(err error) {
	if err != nil {
		panic(fmt.Sprintf("failed to register validation: %v", err))
	}
}

// FieldError is one failed constraint.
type FieldError struct {
	Field string
	Tag   string
	Param string
}

func (e FieldError) String() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s=%s", e.Field, e.Tag, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Tag)
}

// Fields flattens a validator error. Errors of other kinds yield nil.
func Fields(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Namespace(), Tag: fe.Tag(), Param: fe.Param()})
	}
	return out
}

// Describe renders err for humans.
func Describe(err error) string {
	fields := Fields(err)
	if len(fields) == 0 {
		return err.Error()
	}
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, "; ")
}
