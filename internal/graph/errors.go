package graph

import (
	"errors"

	"github.com/maxviazov/knowledge-hub/internal/paging"
	"github.com/maxviazov/knowledge-hub/internal/service"
)

// codedError attaches a machine-readable code to resolver errors via GraphQL extensions.
type codedError struct {
	err  error
	code string
}

func (e *codedError) Error() string { return e.err.Error() }
func (e *codedError) Unwrap() error { return e.err }

// Extensions is picked up by graphql-go when formatting the error.
func (e *codedError) Extensions() map[string]any {
	return map[string]any{"code": e.code}
}

func coded(err error) error {
	code := "INTERNAL"
	switch {
	case errors.Is(err, paging.ErrInvalidParameter), errors.Is(err, service.ErrInvalidInput):
		code = "BAD_USER_INPUT"
	case errors.Is(err, service.ErrUnauthorized):
		code = "UNAUTHENTICATED"
	case errors.Is(err, service.ErrForbidden):
		code = "FORBIDDEN"
	}
	return &codedError{err: err, code: code}
}
