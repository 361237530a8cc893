package travio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/travio/travio-client/internal/constants"

	_ "modernc.org/sqlite"
)

// SQLiteCacheConfig configures the SQLite cache.
type SQLiteCacheConfig struct {
	// Path is the database file. ":memory:" keeps the table in process.
	Path string

	// Table overrides the key-value table name. Defaults to "kv".
	Table string
}

// ErrInvalidSQLiteTable is returned for a table name that is not a plain
// SQL identifier.
var ErrInvalidSQLiteTable = errors.New("invalid sqlite table name")

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteCache is a Cache backed by a single SQLite table. It is the durable
// local storage for credentials and point-lookup entries.
type SQLiteCache struct {
	db    *sql.DB
	table string
}

// NewSQLiteCache opens (creating if needed) the database at config.Path.
func NewSQLiteCache(ctx context.Context, config *SQLiteCacheConfig) (*SQLiteCache, error) {
	if config == nil || config.Path == "" {
		return nil, ErrSQLiteConfigRequired
	}

	table := config.Table
	if table == "" {
		table = "kv"
	}

	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSQLiteTable, table)
	}

	if config.Path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(config.Path), constants.ConfigDirPerm)
		if err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	if config.Path == ":memory:" {
		// each new connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS ` + table + ` (
		key TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		etag TEXT NOT NULL DEFAULT '',
		expires_at INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	)`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &SQLiteCache{db: db, table: table}, nil
}

// Get returns the live entry for key. Expired rows read as ErrCacheExpired
// and stay in place until Purge.
func (c *SQLiteCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	var (
		entry     CacheEntry
		expiresAt int64
	)

	row := c.db.QueryRowContext(ctx, `SELECT data, etag, expires_at FROM `+c.table+` WHERE key = ?`, key)

	err := row.Scan(&entry.Data, &entry.ETag, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrCacheMiss, key)
	}

	if err != nil {
		return nil, fmt.Errorf("reading cache entry: %w", err)
	}

	if expiresAt > 0 {
		entry.ExpiresAt = time.Unix(0, expiresAt)
	}

	if entry.Expired() {
		return nil, fmt.Errorf("%w: %s", ErrCacheExpired, key)
	}

	return &entry, nil
}

// Set upserts the entry for key.
func (c *SQLiteCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	var expiresAt int64
	if !entry.ExpiresAt.IsZero() {
		expiresAt = entry.ExpiresAt.UnixNano()
	}

	data := entry.Data
	if data == nil {
		data = []byte{}
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO `+c.table+` (key, data, etag, expires_at, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			etag = excluded.etag,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		key, data, entry.ETag, expiresAt, time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}

	return nil
}

// Delete removes key. A missing key is not an error.
func (c *SQLiteCache) Delete(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM `+c.table+` WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}

	return nil
}

// Clear empties the table.
func (c *SQLiteCache) Clear(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM `+c.table)
	if err != nil {
		return fmt.Errorf("clearing cache: %w", err)
	}

	return nil
}

// Has reports whether a live entry exists for key.
func (c *SQLiteCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Purge deletes expired rows and returns how many were removed.
func (c *SQLiteCache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM `+c.table+` WHERE expires_at > 0 AND expires_at < ?`, time.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purging cache: %w", err)
	}

	n, _ := res.RowsAffected()

	return n, nil
}

// Close closes the database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
