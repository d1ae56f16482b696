package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldErrors lists every configuration field that failed validation.
type FieldErrors []string

func (f FieldErrors) Error() string {
	return "invalid fields: " + strings.Join(f, "; ")
}

// NewFieldErrors flattens validator output into FieldErrors. Errors of
// any other kind are returned unchanged.
func NewFieldErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return out
}
