package passwordreset

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenStore(t *testing.T) (*TokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewTokenStore(client, 15*time.Minute), mr
}

func TestIssueAndConsume(t *testing.T) {
	store, _ := newTestTokenStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := store.Consume(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", userID)
}

func TestConsumeIsSingleUse(t *testing.T) {
	store, _ := newTestTokenStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, "u1")
	require.NoError(t, err)

	_, err = store.Consume(ctx, token)
	require.NoError(t, err)

	_, err = store.Consume(ctx, token)
	assert.ErrorIs(t, err, ErrTokenUnknown)
}

func TestConsumeUnknownToken(t *testing.T) {
	store, _ := newTestTokenStore(t)

	_, err := store.Consume(context.Background(), "never-issued")
	assert.ErrorIs(t, err, ErrTokenUnknown)
}

func TestTokenExpires(t *testing.T) {
	store, mr := newTestTokenStore(t)
	ctx := context.Background()

	token, err := store.Issue(ctx, "u1")
	require.NoError(t, err)

	mr.FastForward(16 * time.Minute)

	_, err = store.Consume(ctx, token)
	assert.ErrorIs(t, err, ErrTokenUnknown)
}

func TestIssueRequiresUserID(t *testing.T) {
	store, _ := newTestTokenStore(t)

	_, err := store.Issue(context.Background(), "")
	assert.Error(t, err)
}
