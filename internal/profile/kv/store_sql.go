package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"safeballot/internal/platform/sqldb"
	"safeballot/pkg/platform/sentinel"
)

const createProfileKVTable = `
CREATE TABLE IF NOT EXISTS profile_kv (
    namespace TEXT NOT NULL,
    item_key TEXT NOT NULL,
    item_value TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (namespace, item_key)
)`

// SQLKV is a Store over Postgres or SQLite.
type SQLKV struct {
	db      *sql.DB
	dialect sqldb.Dialect
}

func NewSQL(db *sql.DB, dialect sqldb.Dialect) *SQLKV {
	return &SQLKV{db: db, dialect: dialect}
}

// EnsureSchema creates the profile_kv table. Safe to call multiple times.
func (s *SQLKV) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createProfileKVTable); err != nil {
		return fmt.Errorf("create profile_kv: %w", err)
	}
	return nil
}

func (s *SQLKV) Get(ctx context.Context, namespace, key string) (string, error) {
	defer observe(string(s.dialect), "get", time.Now())
	query := fmt.Sprintf(`SELECT item_value FROM profile_kv WHERE namespace = %s AND item_key = %s`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2))
	var v string
	err := s.db.QueryRowContext(ctx, query, namespace, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select %s: %w", key, errors.Join(sentinel.ErrUnavailable, err))
	}
	return v, nil
}

// Set upserts; both engines support ON CONFLICT ... DO UPDATE.
func (s *SQLKV) Set(ctx context.Context, namespace, key, value string) error {
	defer observe(string(s.dialect), "set", time.Now())
	p := s.dialect.Placeholder
	query := fmt.Sprintf(`INSERT INTO profile_kv (namespace, item_key, item_value, updated_at)
VALUES (%s, %s, %s, %s)
ON CONFLICT (namespace, item_key) DO UPDATE SET item_value = excluded.item_value, updated_at = excluded.updated_at`,
		p(1), p(2), p(3), p(4))
	if _, err := s.db.ExecContext(ctx, query, namespace, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert %s: %w", key, errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}

func (s *SQLKV) Delete(ctx context.Context, namespace string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	defer observe(string(s.dialect), "delete", time.Now())
	args := make([]any, 0, len(keys)+1)
	args = append(args, namespace)
	marks := make([]string, len(keys))
	for i, k := range keys {
		marks[i] = s.dialect.Placeholder(i + 2)
		args = append(args, k)
	}
	query := fmt.Sprintf(`DELETE FROM profile_kv WHERE namespace = %s AND item_key IN (%s)`,
		s.dialect.Placeholder(1), strings.Join(marks, ", "))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete: %w", errors.Join(sentinel.ErrUnavailable, err))
	}
	return nil
}
