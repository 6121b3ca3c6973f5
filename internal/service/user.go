package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/rs/zerolog"

	"github.com/maxviazov/knowledge-hub/internal/auth"
	"github.com/maxviazov/knowledge-hub/internal/model"
	"github.com/maxviazov/knowledge-hub/internal/paging"
	"github.com/maxviazov/knowledge-hub/internal/repository"
)

type userService struct {
	repo   repository.UserRepository
	tokens *auth.Tokens
	log    zerolog.Logger
}

func NewUserService(repo repository.UserRepository, tokens *auth.Tokens, logger zerolog.Logger) UserService {
	l := logger.With().Str("module", "service").Str("component", "user").Logger()
	return &userService{repo: repo, tokens: tokens, log: l}
}

// Login checks credentials and issues a token. Every failure looks the same to the caller.
func (s *userService) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, NewInvalidInputError([]FieldError{{Field: "username", Message: "username and password are required"}})
	}
	u, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Debug().Str("username", username).Msg("login for unknown user")
			return Session{}, ErrUnauthorized
		}
		return Session{}, err
	}
	if !u.IsActive || !auth.CheckPassword(u.PasswordHash, password) {
		s.log.Debug().Str("username", username).Msg("login rejected")
		return Session{}, ErrUnauthorized
	}
	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	refresh, _, err := s.tokens.IssueRefresh(u)
	if err != nil {
		return Session{}, err
	}
	if err := s.repo.TouchLogin(ctx, u.ID); err != nil {
		s.log.Warn().Err(err).Int64("user_id", u.ID).Msg("touch last login failed")
	}
	s.log.Info().Int64("user_id", u.ID).Msg("user logged in")
	return Session{Token: token, RefreshToken: refresh, TokenType: "Bearer", ExpiresAt: exp.Unix(), User: u}, nil
}

// Refresh issues a new access token for the account behind a refresh token.
// The account is reloaded, so a deactivated user cannot refresh.
func (s *userService) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return Session{}, NewInvalidInputError([]FieldError{{Field: "refresh_token", Message: "required"}})
	}
	id, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		s.log.Debug().Err(err).Msg("refresh rejected")
		return Session{}, ErrUnauthorized
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Session{}, ErrUnauthorized
		}
		return Session{}, err
	}
	if !u.IsActive {
		return Session{}, ErrUnauthorized
	}
	token, exp, err := s.tokens.Issue(u)
	if err != nil {
		return Session{}, err
	}
	s.log.Debug().Int64("user_id", u.ID).Msg("access token refreshed")
	return Session{Token: token, TokenType: "Bearer", ExpiresAt: exp.Unix(), User: u}, nil
}

func (s *userService) Register(ctx context.Context, username, email, password string) (model.User, error) {
	return s.CreateUser(ctx, username, email, password, false)
}

func (s *userService) Get(ctx context.Context, p model.Principal, id int64) (model.User, error) {
	if !p.Authenticated() {
		return model.User{}, ErrUnauthorized
	}
	if p.UserID != id && !p.IsAdmin {
		return model.User{}, ErrForbidden
	}
	return s.repo.GetByID(ctx, id)
}

func (s *userService) CreateUser(ctx context.Context, username, email, password string, admin bool) (model.User, error) {
	username, email = strings.TrimSpace(username), strings.TrimSpace(email)
	var ferrs []FieldError
	if n := len([]rune(username)); n < minUsernameLen || n > maxUsernameLen {
		ferrs = append(ferrs, FieldError{Field: "username", Message: "length must be between 3 and 80"})
	}
	if _, err := mail.ParseAddress(email); err != nil {
		ferrs = append(ferrs, FieldError{Field: "email", Message: "must be a valid email address"})
	}
	if len(password) < minPasswordLen {
		ferrs = append(ferrs, FieldError{Field: "password", Message: "must be at least 8 characters"})
	}
	if err := NewInvalidInputError(ferrs); err != nil {
		return model.User{}, err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return model.User{}, err
	}
	out, err := s.repo.Create(ctx, model.User{
		Username: username, Email: strings.ToLower(email), PasswordHash: hash, IsAdmin: admin, IsActive: true,
	})
	if err != nil {
		s.log.Error().Err(err).Str("username", username).Msg("create user failed")
		return model.User{}, err
	}
	s.log.Info().Int64("user_id", out.ID).Bool("admin", admin).Msg("user created")
	return out, nil
}

func (s *userService) SetAdmin(ctx context.Context, username string, admin bool) (model.User, error) {
	u, err := s.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return model.User{}, err
	}
	if err := s.repo.SetAdmin(ctx, u.ID, admin); err != nil {
		return model.User{}, err
	}
	u.IsAdmin = admin
	s.log.Info().Int64("user_id", u.ID).Bool("admin", admin).Msg("admin flag changed")
	return u, nil
}

func (s *userService) List(ctx context.Context, p model.Principal, req paging.Request, route *paging.Route) (paging.Page[model.User], error) {
	if !p.Authenticated() {
		return paging.Page[model.User]{}, ErrUnauthorized
	}
	if !p.IsAdmin {
		return paging.Page[model.User]{}, ErrForbidden
	}
	src := paging.SourceFuncs[model.User]{
		CountFn: s.repo.Count,
		SliceFn: func(ctx context.Context, offset, limit int) ([]model.User, error) {
			return s.repo.List(ctx, repository.Page{Limit: limit, Offset: offset})
		},
	}
	return paging.Paginate[model.User](ctx, req, src, route)
}
