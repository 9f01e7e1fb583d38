package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leca/ourstory/internal/database"
	"github.com/leca/ourstory/internal/model"
)

// fakeUsers is an in-memory UserStore.
type fakeUsers struct {
	mu    sync.Mutex
	users map[string]*model.AdminUser
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[string]*model.AdminUser)}
}

func (f *fakeUsers) GetAdminByUsername(_ context.Context, username string) (*model.AdminUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[username]
	if !ok {
		return nil, database.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) CreateAdmin(_ context.Context, u *model.AdminUser) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.Username] = u
	return nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T, opts ...Option) (*Service, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC)}
	svc := NewService(newFakeUsers(), "test-secret", append([]Option{WithClock(clock.Now)}, opts...)...)
	created, err := svc.SeedAdmin(context.Background(), "admin", "changeme")
	require.NoError(t, err)
	require.True(t, created)
	return svc, clock
}

// tamper flips the first character of the signature segment.
func tamper(token string) string {
	i := strings.LastIndex(token, ".") + 1
	c := byte('A')
	if token[i] == 'A' {
		c = 'B'
	}
	return token[:i] + string(c) + token[i+1:]
}

func TestAuthenticate_Success(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()

	token, claims, err := svc.Authenticate(ctx, "admin", "changeme")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "admin", claims.Username)
	assert.NotEmpty(t, claims.UserID)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, clock.Now().Add(TokenTTL), claims.ExpiresAt.Time)

	got, err := svc.VerifySession(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, claims.UserID, got.UserID)
	assert.Equal(t, "admin", got.Username)
}

func TestAuthenticate_FailuresIndistinguishable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, _, errWrongPass := svc.Authenticate(ctx, "admin", "wrong")
	_, _, errNoUser := svc.Authenticate(ctx, "nobody", "changeme")
	_, _, errCase := svc.Authenticate(ctx, "Admin", "changeme")

	assert.ErrorIs(t, errWrongPass, ErrInvalidCredentials)
	assert.Equal(t, errWrongPass, errNoUser)
	assert.Equal(t, errWrongPass, errCase)
}

func TestVerifySession_Expired(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()

	token, _, err := svc.Authenticate(ctx, "admin", "changeme")
	require.NoError(t, err)

	clock.Advance(TokenTTL - time.Minute)
	_, err = svc.VerifySession(ctx, token)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = svc.VerifySession(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestVerifySession_Rejects(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()

	token, _, err := svc.Authenticate(ctx, "admin", "changeme")
	require.NoError(t, err)

	claims := &Claims{
		UserID:   "u1",
		Username: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}
	otherSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
	require.NoError(t, err)
	wrongAlg, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noExp := &Claims{UserID: "u1", Username: "admin"}
	noExpToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, noExp).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"malformed", "not-a-jwt"},
		{"tampered", tamper(token)},
		{"wrong secret", otherSecret},
		{"wrong algorithm", wrongAlg},
		{"none algorithm", none},
		{"no expiry", noExpToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.VerifySession(ctx, tt.token)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestRevoke_WithDenylist(t *testing.T) {
	deny := NewMemoryDenylist()
	svc, clock := newTestService(t, WithDenylist(deny))
	deny.now = clock.Now
	ctx := context.Background()
	assert.True(t, svc.RevocationEnabled())

	token, _, err := svc.Authenticate(ctx, "admin", "changeme")
	require.NoError(t, err)
	other, _, err := svc.Authenticate(ctx, "admin", "changeme")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, token))

	_, err = svc.VerifySession(ctx, token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.VerifySession(ctx, other)
	assert.NoError(t, err, "other sessions stay valid")
}

func TestRevoke_Stateless(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	assert.False(t, svc.RevocationEnabled())

	token, _, err := svc.Authenticate(ctx, "admin", "changeme")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, token))
	_, err = svc.VerifySession(ctx, token)
	assert.NoError(t, err)
}

func TestRevoke_IgnoresInvalidToken(t *testing.T) {
	svc, _ := newTestService(t, WithDenylist(NewMemoryDenylist()))
	assert.NoError(t, svc.Revoke(context.Background(), "garbage"))
}

func TestSeedAdmin_Idempotent(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.SeedAdmin(ctx, "admin", "different")
	require.NoError(t, err)
	assert.False(t, created)

	// The original password still works.
	_, _, err = svc.Authenticate(ctx, "admin", "changeme")
	assert.NoError(t, err)
}

func TestHashPassword(t *testing.T) {
	h, err := HashPassword("secret")
	require.NoError(t, err)
	assert.NotEqual(t, "secret", h)
	assert.True(t, CheckPassword(h, "secret"))
	assert.False(t, CheckPassword(h, "Secret"))
	assert.False(t, CheckPassword("not-a-hash", "secret"))
}
