// Package response centralizes HTTP response shapes and helpers.
// Handlers rely on it to keep controllers thin and uniform.
package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/knowledge-hub/internal/auth"
	"github.com/maxviazov/knowledge-hub/internal/paging"
	"github.com/maxviazov/knowledge-hub/internal/repository"
	"github.com/maxviazov/knowledge-hub/internal/service"
)

// ErrorPayload is the canonical error envelope returned by the API.
type ErrorPayload struct {
	Error       string               `json:"error"`
	Message     string               `json:"message,omitempty"`
	FieldErrors []service.FieldError `json:"field_errors,omitempty"`
}

// MapError converts a domain / infrastructure error into an HTTP status and payload.
// Extend here as new domain error categories emerge.
func MapError(err error) (int, ErrorPayload) {
	if err == nil {
		return http.StatusOK, ErrorPayload{Error: "ok"}
	}

	if errors.Is(err, service.ErrInvalidInput) {
		return http.StatusBadRequest, ErrorPayload{
			Error:       "invalid_input",
			Message:     "one or more fields are invalid",
			FieldErrors: service.FieldErrors(err),
		}
	}
	if pe, ok := paging.AsParamError(err); ok {
		return http.StatusBadRequest, ErrorPayload{
			Error:       "invalid_pagination",
			Message:     pe.Error(),
			FieldErrors: []service.FieldError{{Field: pe.Field, Message: pe.Reason}},
		}
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, ErrorPayload{Error: "not_found"}
	case errors.Is(err, repository.ErrAlreadyExists):
		return http.StatusConflict, ErrorPayload{Error: "already_exists"}
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict, ErrorPayload{Error: "conflict"}
	case errors.Is(err, service.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, ErrorPayload{Error: "unauthorized"}
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, ErrorPayload{Error: "forbidden"}
	default:
		return http.StatusInternalServerError, ErrorPayload{Error: "internal_error"}
	}
}

// WriteError writes an error response and aborts the context.
func WriteError(c *gin.Context, err error) {
	status, payload := MapError(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, payload)
}

// WriteData writes a successful JSON response.
func WriteData(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

// WriteLinks mirrors navigation links into the Link header.
func WriteLinks(c *gin.Context, links paging.Links) {
	if h := links.Header(); h != "" {
		c.Header("Link", h)
	}
}

// WritePage writes an offset page as 200 with its Link header.
func WritePage[T any](c *gin.Context, p paging.Page[T]) {
	WriteLinks(c, p.Links)
	c.JSON(http.StatusOK, p)
}

// WriteCursorPage writes a cursor page as 200 with its Link header.
func WriteCursorPage[T any](c *gin.Context, p paging.CursorPage[T]) {
	WriteLinks(c, p.Links)
	c.JSON(http.StatusOK, p)
}
