package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	_ "modernc.org/sqlite"             // register sqlite as database/sql driver

	"resumind/internal/shared/telemetry"
)

// Options controls the pool behind a KV store.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
}

var openDB = sql.Open

// sqlitePragmas keep a single file usable from the host daemon and a
// migration run at the same time.
var sqlitePragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// DefaultServerOptions suits the long-running host daemon.
func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// DefaultMigrateOptions suits one-shot migration runs.
func DefaultMigrateOptions() Options {
	o := DefaultServerOptions()
	o.MaxOpenConns, o.MaxIdleConns = 1, 1
	return o
}

// DefaultSQLiteOptions serializes access to a single sqlite file.
func DefaultSQLiteOptions() Options {
	return Options{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
	}
}

// Override returns o with every positive field of by applied on top.
func (o Options) Override(by Options) Options {
	if by.MaxOpenConns > 0 {
		o.MaxOpenConns = by.MaxOpenConns
	}
	if by.MaxIdleConns > 0 {
		o.MaxIdleConns = by.MaxIdleConns
	}
	if by.ConnMaxLifetime > 0 {
		o.ConnMaxLifetime = by.ConnMaxLifetime
	}
	if by.ConnMaxIdleTime > 0 {
		o.ConnMaxIdleTime = by.ConnMaxIdleTime
	}
	if by.PingTimeout > 0 {
		o.PingTimeout = by.PingTimeout
	}
	return o
}

// Connect opens the postgres pool named by databaseURL.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	return Open(ctx, "pgx", databaseURL, opts)
}

// OpenSQLite opens the sqlite file at path, creating its directory.
func OpenSQLite(ctx context.Context, path string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	return Open(ctx, "sqlite", SQLiteDSN(path), opts)
}

// SQLiteDSN adds the store's pragmas to a file path.
func SQLiteDSN(path string) string {
	q := url.Values{}
	for _, p := range sqlitePragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

// Open opens a pool for driverName and pings it.
func Open(ctx context.Context, driverName, dsn string, opts Options) (*sql.DB, error) {
	conn, err := openDB(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	opts = DefaultServerOptions().Override(opts)
	conn.SetMaxOpenConns(opts.MaxOpenConns)
	conn.SetMaxIdleConns(opts.MaxIdleConns)
	conn.SetConnMaxLifetime(opts.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driverName, err)
	}

	telemetry.Info("db.open", map[string]any{
		"driver":   driverName,
		"max_open": opts.MaxOpenConns,
		"max_idle": opts.MaxIdleConns,
	})
	return conn, nil
}
