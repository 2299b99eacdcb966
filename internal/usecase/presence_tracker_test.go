package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealroom/pkg/errors"
)

func TestPresenceJoinLeave(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.presence.Join(f.ctx, "d1", "buyer-1"))
	require.NoError(t, f.presence.Join(f.ctx, "d1", "seller-1"))
	require.NoError(t, f.presence.Join(f.ctx, "d1", "buyer-1"))

	online, err := f.presence.Online(f.ctx, "d1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"buyer-1", "seller-1"}, online)

	require.NoError(t, f.presence.Leave(f.ctx, "d1", "seller-1"))
	online, _ = f.presence.Online(f.ctx, "d1")
	assert.Equal(t, []string{"buyer-1"}, online)
}

func TestPresenceExpires(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.presence.Join(f.ctx, "d1", "buyer-1"))
	f.redis.FastForward(25 * time.Hour)

	online, err := f.presence.Online(f.ctx, "d1")
	require.NoError(t, err)
	assert.Empty(t, online)
}

func TestPresenceUnavailable(t *testing.T) {
	f := newFixture(t)
	f.redis.Close()

	err := f.presence.Join(f.ctx, "d1", "buyer-1")
	assert.True(t, errors.Is(err, errors.CodeCacheUnavailable))

	_, err = f.presence.Online(f.ctx, "d1")
	assert.True(t, errors.Is(err, errors.CodeCacheUnavailable))
}
