package kv

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safeballot/pkg/platform/sentinel"
)

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("missing key is not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, "p1", "digital_key_b1")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("set then get round trips", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "p1", "digital_key_b1", "SAFE-BALLOT-AAAAAA-BBBBBB"))
		v, err := s.Get(ctx, "p1", "digital_key_b1")
		require.NoError(t, err)
		assert.Equal(t, "SAFE-BALLOT-AAAAAA-BBBBBB", v)
	})

	t.Run("set overwrites", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "p1", "verified_b1", "false"))
		require.NoError(t, s.Set(ctx, "p1", "verified_b1", "true"))
		v, err := s.Get(ctx, "p1", "verified_b1")
		require.NoError(t, err)
		assert.Equal(t, "true", v)
	})

	t.Run("namespaces are isolated", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "p1", "hasVoted_b1", "true"))
		_, err := s.Get(ctx, "p2", "hasVoted_b1")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("delete removes only named keys in one namespace", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(ctx, "p1", "a", "1"))
		require.NoError(t, s.Set(ctx, "p1", "b", "2"))
		require.NoError(t, s.Set(ctx, "p2", "a", "3"))

		require.NoError(t, s.Delete(ctx, "p1", "a", "never-set"))

		_, err := s.Get(ctx, "p1", "a")
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
		v, err := s.Get(ctx, "p1", "b")
		require.NoError(t, err)
		assert.Equal(t, "2", v)
		v, err = s.Get(ctx, "p2", "a")
		require.NoError(t, err)
		assert.Equal(t, "3", v)
	})

	t.Run("delete with no keys is a no-op", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Delete(ctx, "p1"))
	})

	t.Run("concurrent writers to distinct keys", func(t *testing.T) {
		s := newStore(t)
		var wg sync.WaitGroup
		keys := []string{"k0", "k1", "k2", "k3", "k4", "k5", "k6", "k7"}
		for _, k := range keys {
			wg.Add(1)
			go func(k string) {
				defer wg.Done()
				assert.NoError(t, s.Set(ctx, "p1", k, k+"-value"))
			}(k)
		}
		wg.Wait()
		for _, k := range keys {
			v, err := s.Get(ctx, "p1", k)
			require.NoError(t, err)
			assert.Equal(t, k+"-value", v)
		}
	})
}

func TestInMemoryStore(t *testing.T) {
	runStoreContract(t, func(*testing.T) Store { return NewInMemory() })
}
