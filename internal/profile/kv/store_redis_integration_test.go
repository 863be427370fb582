//go:build integration

package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"safeballot/pkg/testutil/containers"
)

func TestRedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.GetManager().GetRedis(t)

	runStoreContract(t, func(t *testing.T) Store {
		require.NoError(t, rc.FlushAll(context.Background()))
		return NewRedis(rc.Client, WithProfileTTL(time.Hour))
	})
}

func TestRedisStoreRefreshesTTL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rc := containers.GetManager().GetRedis(t)
	require.NoError(t, rc.FlushAll(ctx))

	s := NewRedis(rc.Client, WithProfileTTL(time.Minute))
	require.NoError(t, s.Set(ctx, "p1", "verified_b1", "true"))

	ttl, err := rc.Client.TTL(ctx, profileKeyPrefix+"p1").Result()
	require.NoError(t, err)
	require.Greater(t, ttl, 50*time.Second)
}
