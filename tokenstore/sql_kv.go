package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const (
	sqlCreateTable = `CREATE TABLE IF NOT EXISTS secure_entries (name TEXT PRIMARY KEY, value BLOB NOT NULL)`
	sqlSelectEntry = `SELECT value FROM secure_entries WHERE name = ?`
	sqlUpsertEntry = `INSERT INTO secure_entries (name, value) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET value = excluded.value`
	sqlDeleteEntry = `DELETE FROM secure_entries WHERE name = ?`
)

// SQLKV stores sealed entries in a single table of a database/sql handle.
// The statements use "?" placeholders and the SQLite upsert syntax.
type SQLKV struct {
	db *sql.DB
}

// NewSQLKV wraps db. Call [SQLKV.Migrate] once before use.
func NewSQLKV(db *sql.DB) *SQLKV {
	return &SQLKV{db: db}
}

// Migrate creates the entries table if it is missing.
func (s *SQLKV) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqlCreateTable); err != nil {
		return fmt.Errorf("%w: create table: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (s *SQLKV) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, sqlSelectEntry, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return value, nil
}

func (s *SQLKV) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, sqlUpsertEntry, key, value); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (s *SQLKV) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, sqlDeleteEntry, key); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}
