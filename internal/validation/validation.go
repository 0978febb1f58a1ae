// Package validation configures go-playground/validator with the billing
// specific tags and converts its errors into apperrors.ValidationErrors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"gstbill/internal/apperrors"
	"gstbill/internal/billing"
)

// New returns a validator with the gstin, hsn, statecode, gstrate and money
// tags registered. Decimal fields are validated through their string form.
func New() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		if d, ok := f.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	mustRegister(v, "gstin", func(fl validator.FieldLevel) bool {
		return billing.ValidGSTIN(fl.Field().String())
	})
	mustRegister(v, "hsn", func(fl validator.FieldLevel) bool {
		return billing.ValidHSN(fl.Field().String())
	})
	mustRegister(v, "statecode", func(fl validator.FieldLevel) bool {
		return billing.ValidStateCode(fl.Field().String())
	})
	mustRegister(v, "gstrate", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && billing.ValidGSTRate(d)
	})
	mustRegister(v, "money", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && !d.IsNegative() && d.Equal(d.Round(2))
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

var reasons = map[string]string{
	"required":  "is required",
	"email":     "must be a valid email address",
	"gstin":     "must be a valid 15 character GSTIN",
	"hsn":       "must be 4 to 8 digits",
	"statecode": "must be a 2 digit state code",
	"gstrate":   "must be one of 0, 5, 12, 18, 28",
	"money":     "must be non-negative with at most 2 decimal places",
	"uuid":      "must be a UUID",
}

// Check validates s and returns apperrors.ValidationErrors keyed by the JSON
// field names, or nil.
func Check(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate %T: %w", s, err)
	}

	var out apperrors.ValidationErrors
	for _, fe := range verrs {
		reason, ok := reasons[fe.Tag()]
		if !ok {
			reason = fmt.Sprintf("failed on the '%s' tag", fe.Tag())
			if fe.Param() != "" {
				reason = fmt.Sprintf("failed on the '%s=%s' tag", fe.Tag(), fe.Param())
			}
		}
		out.Add(fe.Field(), reason)
	}
	return out.OrNil()
}
