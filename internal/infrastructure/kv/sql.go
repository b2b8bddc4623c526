// internal/infrastructure/kv/sql.go
package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const sqlSchema = `
CREATE TABLE IF NOT EXISTS storefront_kv (
    entry_key  TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    expires_at INTEGER
)`

// SQLStore persists values in a sqlite table through database/sql
type SQLStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLStore creates the table if needed and returns the store
func NewSQLStore(ctx context.Context, db *sql.DB, ttl time.Duration) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, sqlSchema); err != nil {
		return nil, fmt.Errorf("apply kv schema: %w", err)
	}
	return &SQLStore{db: db, ttl: ttl, now: time.Now}, nil
}

// Get retrieves a live value by key
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	row := s.db.QueryRowContext(ctx, `
        SELECT value, expires_at
        FROM storefront_kv
        WHERE entry_key = ?
    `, key)

	var (
		value     []byte
		expiresAt sql.NullInt64
	)
	if err := row.Scan(&value, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}

	if expiresAt.Valid && s.now().UnixNano() >= expiresAt.Int64 {
		return nil, ErrNotFound
	}
	return value, nil
}

// Set upserts a value
func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	var expiresAt sql.NullInt64
	if s.ttl > 0 {
		expiresAt = sql.NullInt64{Int64: s.now().Add(s.ttl).UnixNano(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO storefront_kv (entry_key, value, expires_at)
        VALUES (?, ?, ?)
        ON CONFLICT (entry_key) DO UPDATE
        SET value = excluded.value, expires_at = excluded.expires_at
    `, key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Del deletes a key
func (s *SQLStore) Del(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM storefront_kv WHERE entry_key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Ping checks the database connection
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Purge removes expired rows and returns how many were deleted
func (s *SQLStore) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
        DELETE FROM storefront_kv
        WHERE expires_at IS NOT NULL AND expires_at <= ?
    `, s.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purge expired entries: %w", err)
	}
	return res.RowsAffected()
}
