package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/leca/ourstory/internal/database"
	"github.com/leca/ourstory/internal/model"
)

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password; callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrRateLimited        = errors.New("too many login attempts")
)

// TokenTTL is how long an issued session token stays valid.
const TokenTTL = 7 * 24 * time.Hour

// Claims is the session token payload.
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserStore is the subset of the database the auth service needs.
type UserStore interface {
	GetAdminByUsername(ctx context.Context, username string) (*model.AdminUser, error)
	CreateAdmin(ctx context.Context, u *model.AdminUser) error
}

// Service authenticates admins and issues and verifies session tokens.
type Service struct {
	users    UserStore
	secret   []byte
	denylist Denylist
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithDenylist enables server-side revocation on logout.
func WithDenylist(d Denylist) Option {
	return func(s *Service) { s.denylist = d }
}

// WithClock overrides the time source used to issue and check tokens.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(users UserStore, secret string, opts ...Option) *Service {
	s := &Service{users: users, secret: []byte(secret), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Authenticate checks the credentials and returns a signed session token.
func (s *Service) Authenticate(ctx context.Context, username, password string) (string, *Claims, error) {
	user, err := s.users.GetAdminByUsername(ctx, username)
	if errors.Is(err, database.ErrNotFound) {
		CheckPassword(dummyHash(), password)
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("looking up admin: %w", err)
	}
	if !CheckPassword(user.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}
	return s.issue(user)
}

func (s *Service) issue(user *model.AdminUser) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("signing token: %w", err)
	}
	return token, claims, nil
}

func (s *Service) parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifySession validates a token and returns its claims. Missing, malformed,
// badly signed, expired and revoked tokens all yield ErrUnauthorized.
func (s *Service) VerifySession(ctx context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	claims, err := s.parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: token has no user", ErrUnauthorized)
	}
	if s.denylist != nil && claims.ID != "" {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("checking denylist: %w", err)
		}
		if revoked {
			return nil, fmt.Errorf("%w: token revoked", ErrUnauthorized)
		}
	}
	return claims, nil
}

// Revoke records the token's id in the denylist until it expires. Without a
// denylist, or for a token that no longer verifies, it does nothing.
func (s *Service) Revoke(ctx context.Context, token string) error {
	if s.denylist == nil || token == "" {
		return nil
	}
	claims, err := s.parse(token)
	if err != nil || claims.ID == "" {
		return nil
	}
	return s.denylist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// RevocationEnabled reports whether logout revokes tokens server-side.
func (s *Service) RevocationEnabled() bool {
	return s.denylist != nil
}

// SeedAdmin creates the admin account unless one with that username exists.
// It reports whether a new account was created.
func (s *Service) SeedAdmin(ctx context.Context, username, password string) (bool, error) {
	_, err := s.users.GetAdminByUsername(ctx, username)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return false, fmt.Errorf("looking up admin: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	u := &model.AdminUser{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateAdmin(ctx, u); err != nil {
		return false, err
	}
	return true, nil
}
