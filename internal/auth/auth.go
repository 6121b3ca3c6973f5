// Package auth issues and verifies bearer tokens and hashes passwords.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/maxviazov/knowledge-hub/internal/config"
	"github.com/maxviazov/knowledge-hub/internal/model"
)

// ErrInvalidToken covers every rejected token: bad signature, wrong algorithm, expired, malformed.
var ErrInvalidToken = errors.New("invalid token")

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Token kinds. An access token is never accepted where a refresh token is expected and vice versa.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

type claims struct {
	Username string `json:"username,omitempty"`
	Admin    bool   `json:"admin,omitempty"`
	Kind     string `json:"typ"`
	jwt.RegisteredClaims
}

// Tokens signs HS256 access and refresh tokens for a single secret.
type Tokens struct {
	secret     []byte
	issuer     string
	ttl        time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokens(cfg config.AuthConfig) *Tokens {
	ttl := cfg.TTL()
	if ttl <= 0 {
		ttl = time.Hour
	}
	refresh := cfg.RefreshTTLDuration()
	if refresh <= 0 {
		refresh = 30 * 24 * time.Hour
	}
	return &Tokens{secret: []byte(cfg.JWTSecret), issuer: cfg.Issuer, ttl: ttl, refreshTTL: refresh, now: time.Now}
}

// Issue returns a signed access token for u and its expiry.
func (t *Tokens) Issue(u model.User) (string, time.Time, error) {
	return t.sign(claims{Username: u.Username, Admin: u.IsAdmin, Kind: KindAccess}, u.ID, t.ttl)
}

// IssueRefresh returns a long-lived token that can only be exchanged for a new access token.
func (t *Tokens) IssueRefresh(u model.User) (string, time.Time, error) {
	return t.sign(claims{Kind: KindRefresh}, u.ID, t.refreshTTL)
}

func (t *Tokens) sign(c claims, userID int64, ttl time.Duration) (string, time.Time, error) {
	now := t.now()
	exp := now.Add(ttl)
	c.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    t.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies an access token and returns the principal it claims.
// Callers that need current rights must reload the user by id.
func (t *Tokens) Parse(raw string) (model.Principal, error) {
	c, id, err := t.verify(raw, KindAccess)
	if err != nil {
		return model.Principal{}, err
	}
	return model.Principal{UserID: id, Username: c.Username, IsAdmin: c.Admin}, nil
}

// ParseRefresh verifies a refresh token and returns the user id it was issued for.
func (t *Tokens) ParseRefresh(raw string) (int64, error) {
	_, id, err := t.verify(raw, KindRefresh)
	return id, err
}

func (t *Tokens) verify(raw, kind string) (claims, int64, error) {
	var c claims
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) { return t.secret, nil }, opts...)
	if err != nil {
		return claims{}, 0, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if c.Kind != kind {
		return claims{}, 0, fmt.Errorf("%w: want %s token, got %q", ErrInvalidToken, kind, c.Kind)
	}
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return claims{}, 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return c, id, nil
}
