// Package validation checks mandatory input fields and reports them as
// apperr.MissingField failures named after their JSON keys.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/congo-pay/wallet_ledger/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// Required validates the `validate` tags of the struct pointed to by obj.
// String fields should be trimmed by the caller first so blank values fail
// the required check. Only the first failing field is reported.
func Required(obj any) error {
	err := validate.Struct(obj)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return apperr.New(apperr.MissingField, apperr.MsgMissingField, fieldErrs[0].Field())
	}
	return err
}
