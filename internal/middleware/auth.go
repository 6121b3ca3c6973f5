package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/maxviazov/knowledge-hub/internal/auth"
	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/repository"
	"github.com/maxviazov/knowledge-hub/internal/service"
	"github.com/maxviazov/knowledge-hub/pkg/response"
)

const principalKey = "principal"

// UserLookup loads the account a token was issued for.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (model.User, error)
}

// Authenticate resolves an optional bearer token into a principal.
// No Authorization header means anonymous; a malformed or rejected token is a 401.
// The token only names the account: the principal is rebuilt from the stored user,
// so a deactivated, deleted or demoted account loses its rights immediately.
func Authenticate(tokens *auth.Tokens, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			c.Next()
			return
		}
		scheme, raw, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
			response.WriteError(c, auth.ErrInvalidToken)
			return
		}
		claimed, err := tokens.Parse(strings.TrimSpace(raw))
		if err != nil {
			response.WriteError(c, err)
			return
		}
		u, err := users.GetByID(c.Request.Context(), claimed.UserID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			response.WriteError(c, auth.ErrInvalidToken)
			return
		case err != nil:
			response.WriteError(c, err)
			return
		case !u.IsActive:
			response.WriteError(c, auth.ErrInvalidToken)
			return
		}
		c.Set(principalKey, model.Principal{UserID: u.ID, Username: u.Username, IsAdmin: u.IsAdmin})
		c.Next()
	}
}

// PrincipalFrom returns the caller set by Authenticate; anonymous when absent.
func PrincipalFrom(c *gin.Context) model.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(model.Principal); ok {
			return p
		}
	}
	return model.Principal{}
}

// RequireAuth rejects anonymous callers.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !PrincipalFrom(c).Authenticated() {
			response.WriteError(c, service.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects everyone but administrators.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := PrincipalFrom(c)
		switch {
		case !p.Authenticated():
			response.WriteError(c, service.ErrUnauthorized)
		case !p.IsAdmin:
			response.WriteError(c, service.ErrForbidden)
		default:
			c.Next()
		}
	}
}
