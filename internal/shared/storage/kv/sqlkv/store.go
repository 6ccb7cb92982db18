package sqlkv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"resumind/internal/shared/storage/kv"
)

// Dialect selects placeholder syntax.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// Store implements kv.Store over the kv_entries table.
type Store struct {
	DB      *sql.DB
	Dialect Dialect
}

// New wraps an open database whose schema has been migrated.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{DB: db, Dialect: dialect}
}

func (s *Store) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	query := s.rebind(`SELECT value FROM kv_entries WHERE namespace = ? AND key = ?`)
	var value string
	err := s.DB.QueryRowContext(ctx, query, namespace, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get: %w", err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, namespace, key, value string) error {
	query := s.rebind(`
INSERT INTO kv_entries (namespace, key, value, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (namespace, key) DO UPDATE SET
  value = excluded.value,
  updated_at = CURRENT_TIMESTAMP`)
	if _, err := s.DB.ExecContext(ctx, query, namespace, key, value); err != nil {
		return fmt.Errorf("kv set: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, namespace, key string) (bool, error) {
	query := s.rebind(`DELETE FROM kv_entries WHERE namespace = ? AND key = ?`)
	res, err := s.DB.ExecContext(ctx, query, namespace, key)
	if err != nil {
		return false, fmt.Errorf("kv delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("kv delete rows: %w", err)
	}
	return n > 0, nil
}

// List scans the namespace in key order and filters with the glob in Go, so
// sqlite and postgres agree on pattern semantics.
func (s *Store) List(ctx context.Context, namespace, pattern string) ([]kv.Entry, error) {
	if err := kv.ValidatePattern(pattern); err != nil {
		return nil, err
	}
	query := s.rebind(`SELECT key, value FROM kv_entries WHERE namespace = ? ORDER BY key`)
	rows, err := s.DB.QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("kv list: %w", err)
	}
	defer rows.Close()

	var out []kv.Entry
	for rows.Next() {
		var e kv.Entry
		if err := rows.Scan(&e.Key, &e.Value); err != nil {
			return nil, fmt.Errorf("kv list scan: %w", err)
		}
		ok, err := kv.Match(pattern, e.Key)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("kv list rows: %w", err)
	}
	return out, nil
}

func (s *Store) Flush(ctx context.Context, namespace string) error {
	query := s.rebind(`DELETE FROM kv_entries WHERE namespace = ?`)
	if _, err := s.DB.ExecContext(ctx, query, namespace); err != nil {
		return fmt.Errorf("kv flush: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if s.Dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ kv.Store = (*Store)(nil)
