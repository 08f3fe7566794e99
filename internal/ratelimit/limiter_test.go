package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) *Limiter {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewLimiter(client, nil)
}

func TestCheckAllowsUnderLimit(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, "org1", 3))

	res := l.Check(ctx, "org1", 10)
	require.NotNil(t, res)
	require.True(t, res.Allowed)
	require.Equal(t, 7, res.Remaining)
}

func TestCheckDeniesAtLimit(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, "org1", 10))

	res := l.Check(ctx, "org1", 10)
	require.NotNil(t, res)
	require.False(t, res.Allowed)
	require.Equal(t, 0, res.Remaining)
}

func TestCheckIsPerOrganisation(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()

	require.NoError(t, l.Record(ctx, "org1", 10))

	res := l.Check(ctx, "org2", 10)
	require.NotNil(t, res)
	require.True(t, res.Allowed)
	require.Equal(t, 10, res.Remaining)
}

func TestCheckFailsOpenWhenRedisUnavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	l := NewLimiter(client, nil)

	res := l.Check(context.Background(), "org1", 10)
	require.Nil(t, res)
}

func TestRecordIsNoopForZero(t *testing.T) {
	l := newTestLimiter(t)
	require.NoError(t, l.Record(context.Background(), "org1", 0))
}
