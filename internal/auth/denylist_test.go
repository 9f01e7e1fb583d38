package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDenylist(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC)}
	d := NewMemoryDenylist()
	d.now = clock.Now
	ctx := context.Background()

	require.NoError(t, d.Revoke(ctx, "jti-1", clock.Now().Add(time.Hour)))

	revoked, err := d.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, _ = d.IsRevoked(ctx, "jti-2")
	assert.False(t, revoked)

	clock.Advance(time.Hour)
	revoked, _ = d.IsRevoked(ctx, "jti-1")
	assert.False(t, revoked, "entries lapse with the token")
}

func TestMemoryDenylist_PrunesExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC)}
	d := NewMemoryDenylist()
	d.now = clock.Now
	ctx := context.Background()

	require.NoError(t, d.Revoke(ctx, "old", clock.Now().Add(time.Minute)))
	clock.Advance(2 * time.Minute)
	require.NoError(t, d.Revoke(ctx, "new", clock.Now().Add(time.Minute)))
	require.NoError(t, d.Revoke(ctx, "already-expired", clock.Now().Add(-time.Second)))

	assert.Len(t, d.entries, 1)
}
