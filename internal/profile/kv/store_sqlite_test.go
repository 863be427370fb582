package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"safeballot/internal/platform/config"
	"safeballot/internal/platform/sqldb"
)

func TestSQLiteStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		ctx := context.Background()
		db, err := sqldb.Open(ctx, sqldb.SQLite, config.DatabaseConfig{SQLitePath: ":memory:"})
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		s := NewSQL(db, sqldb.SQLite)
		require.NoError(t, s.EnsureSchema(ctx))
		require.NoError(t, s.EnsureSchema(ctx), "schema creation is idempotent")
		return s
	})
}
