package utils

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// House types accepted by the order forms
const (
	HouseTypeApartment = "apartment"
	HouseTypePrivate   = "private"
	HouseTypeOffice    = "office"
)

var houseTypes = []string{HouseTypeApartment, HouseTypePrivate, HouseTypeOffice}

// NewValidator returns a validator with the storefront rules registered.
// Field errors are reported under their json names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("ru_phone", func(fl validator.FieldLevel) bool {
		return NormalizePhone(fl.Field().String()) != ""
	})
	_ = v.RegisterValidation("category_id", func(fl validator.FieldLevel) bool {
		return slices.Contains(ServiceCategories, fl.Field().String())
	})
	_ = v.RegisterValidation("house_type", func(fl validator.FieldLevel) bool {
		return slices.Contains(houseTypes, fl.Field().String())
	})
	return v
}

// NormalizePhone returns a Russian number as +7XXXXXXXXXX, or "" when it is not one.
// Spaces, dashes, dots and parentheses are ignored; a leading 8 is read as 7.
func NormalizePhone(raw string) string {
	var digits []rune
	for i, r := range strings.TrimSpace(raw) {
		switch {
		case unicode.IsDigit(r):
			digits = append(digits, r)
		case r == '+' && i == 0:
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return ""
		}
	}

	switch {
	case len(digits) == 11 && (digits[0] == '7' || digits[0] == '8'):
		digits = digits[1:]
	case len(digits) == 10 && digits[0] == '9':
	default:
		return ""
	}
	if digits[0] != '9' && digits[0] != '3' && digits[0] != '4' && digits[0] != '8' {
		return ""
	}
	return "+7" + string(digits)
}

// ValidationErrorMessage renders one field error for display
func ValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "min":
		if err.Kind() == reflect.Slice || err.Kind() == reflect.Map {
			return err.Field() + " must contain at least " + err.Param() + " item(s)"
		}
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "ru_phone":
		return "Phone must be a Russian number, e.g. +7 900 123-45-67"
	case "category_id":
		return err.Field() + " must be one of: " + strings.Join(ServiceCategories, ", ")
	case "house_type":
		return err.Field() + " must be one of: " + strings.Join(houseTypes, ", ")
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// ValidationMessages flattens a validator error into a field → message map.
// Errors that are not field errors end up under "_".
func ValidationMessages(err error) map[string]string {
	if err == nil {
		return nil
	}
	out := make(map[string]string)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		out["_"] = err.Error()
		return out
	}
	for _, fe := range fieldErrs {
		key := fe.Field()
		if ns := fe.Namespace(); strings.Count(ns, ".") > 1 {
			key = ns[strings.Index(ns, ".")+1:]
		}
		out[key] = ValidationErrorMessage(fe)
	}
	return out
}
