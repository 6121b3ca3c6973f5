// Package service holds business logic orchestration across repositories and handlers.
// Kept intentionally lean: only use-case coordination, validation and domain error shaping.
package service

import (
	"context"
	"errors"

	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/paging"
)

// ErrInvalidInput is the marker error for aggregated validation failures (maps to HTTP 400).
// Field-level details are retrieved via FieldErrors(err).
var ErrInvalidInput = errors.New("invalid input")

// Access errors. ErrUnauthorized means "who are you", ErrForbidden means "not you".
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// FieldError describes a single invalid field in a client request.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// invalidInputError aggregates multiple FieldError instances and unwraps to ErrInvalidInput.
type invalidInputError struct {
	fields []FieldError
}

func (e *invalidInputError) Error() string        { return ErrInvalidInput.Error() }
func (e *invalidInputError) Unwrap() error        { return ErrInvalidInput }
func (e *invalidInputError) Fields() []FieldError { return e.fields }

// NewInvalidInputError builds an aggregated validation error if any field errors are present.
// Handlers use it for transport-level problems such as a non-numeric path id.
func NewInvalidInputError(fe []FieldError) error {
	if len(fe) == 0 { // protective case
		return nil
	}
	return &invalidInputError{fields: fe}
}

// FieldErrors extracts field errors from an aggregated validation error.
func FieldErrors(err error) []FieldError {
	if err == nil {
		return nil
	}
	type feIface interface{ Fields() []FieldError }
	var v feIface
	if errors.As(err, &v) && errors.Is(err, ErrInvalidInput) {
		return v.Fields()
	}
	return nil
}

// EntryQuery narrows an entry listing.
type EntryQuery struct {
	Category string
	Search   string
	Sort     string
}

// SearchQuery is the advanced search form. At least one of Q, Category or Author is required.
type SearchQuery struct {
	Q        string
	Category string
	Author   string
	DateFrom string
	DateTo   string
	Sort     string
}

// EntryInput carries the writable entry fields for create and update.
type EntryInput struct {
	Title      string   `json:"title"`
	Summary    string   `json:"summary"`
	Content    string   `json:"content"`
	Status     string   `json:"status"`
	Priority   string   `json:"priority"`
	IsPublic   *bool    `json:"is_public"`
	Featured   bool     `json:"featured"`
	Categories []string `json:"categories"`
	Tags       []string `json:"tags"`
}

// CategoryInput carries the writable category fields.
type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
}

// Session is the result of a successful login or refresh.
// RefreshToken is only set by Login; a refresh keeps the caller's refresh token.
type Session struct {
	Token        string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	TokenType    string     `json:"token_type"`
	ExpiresAt    int64      `json:"expires_at"`
	User         model.User `json:"user"`
}

// EntryService defines entry use cases. The caller identity is always passed explicitly;
// route is only used to build navigation links and may be nil.
type EntryService interface {
	List(ctx context.Context, p model.Principal, q EntryQuery, req paging.Request, route *paging.Route) (paging.Page[model.Entry], error)
	Feed(ctx context.Context, p model.Principal, q EntryQuery, req paging.CursorRequest, route *paging.Route) (paging.CursorPage[model.Entry], error)
	Search(ctx context.Context, p model.Principal, q SearchQuery, req paging.Request, route *paging.Route) (paging.Page[model.Entry], error)
	Popular(ctx context.Context, req paging.Request, route *paging.Route) (paging.Page[model.Entry], error)
	Get(ctx context.Context, p model.Principal, id int64) (model.Entry, error)
	Create(ctx context.Context, p model.Principal, in EntryInput) (model.Entry, error)
	Update(ctx context.Context, p model.Principal, id int64, in EntryInput) (model.Entry, error)
	Delete(ctx context.Context, p model.Principal, id int64) error
}

// CategoryService defines category use cases.
type CategoryService interface {
	List(ctx context.Context) ([]model.Category, error)
	Create(ctx context.Context, p model.Principal, in CategoryInput) (model.Category, error)
}

// UserService defines account use cases.
type UserService interface {
	Login(ctx context.Context, username, password string) (Session, error)
	// Refresh exchanges a refresh token for a new access token.
	Refresh(ctx context.Context, refreshToken string) (Session, error)
	// Register creates a regular, active account.
	Register(ctx context.Context, username, email, password string) (model.User, error)
	// Get returns a profile: callers may read their own, admins any.
	Get(ctx context.Context, p model.Principal, id int64) (model.User, error)
	CreateUser(ctx context.Context, username, email, password string, admin bool) (model.User, error)
	SetAdmin(ctx context.Context, username string, admin bool) (model.User, error)
	List(ctx context.Context, p model.Principal, req paging.Request, route *paging.Route) (paging.Page[model.User], error)
}

// StatsService defines dashboard use cases.
type StatsService interface {
	Overview(ctx context.Context) (model.Overview, error)
}
