package paging

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter marks any pagination input that failed validation.
// Callers translate it into a 4xx; it is never retried.
var ErrInvalidParameter = errors.New("invalid pagination parameter")

// ParamError names the offending parameter so the API layer can report it per field.
type ParamError struct {
	Field  string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidParameter.Error(), e.Field, e.Reason)
}

func (e *ParamError) Unwrap() error { return ErrInvalidParameter }

func invalid(field, reason string) error {
	return &ParamError{Field: field, Reason: reason}
}

// AsParamError extracts the field-level detail from err, if any.
func AsParamError(err error) (*ParamError, bool) {
	var pe *ParamError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
