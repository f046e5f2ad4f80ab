package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps items in a single SQLite table.
type SQLiteStore struct {
	db    *sql.DB
	table string
	now   func() time.Time
	once  sync.Once
}

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithTable sets the table name. Default: "kvstore".
func WithTable(name string) SQLiteOption {
	return func(s *SQLiteStore) { s.table = name }
}

// WithSQLiteClock sets the clock used for native expiry.
func WithSQLiteClock(now func() time.Time) SQLiteOption {
	return func(s *SQLiteStore) { s.now = now }
}

// OpenSQLite opens (creating if needed) a SQLite database at path.
// An empty path or ":memory:" opens a private in-memory database.
func OpenSQLite(ctx context.Context, path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open sqlite: %w", err)
	}
	if path == ":memory:" {
		// Every connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("kvstore: enable WAL: %w", err)
	}

	s := &SQLiteStore{db: db, table: "kvstore", now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("kvstore: create table: %w", err)
	}
	return s, nil
}

// GetItem returns the value stored under key. Rows past their native expiry
// are deleted and reported missing.
func (s *SQLiteStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	var (
		data      []byte
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM `+s.table+` WHERE key = ?`, key,
	).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, s.wrap(err)
	}

	if expiresAt > 0 && expiresAt <= s.now().UnixNano() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM `+s.table+` WHERE key = ?`, key)
		return "", false, nil
	}
	return string(data), true, nil
}

// SetItem stores value under key with no native expiry.
func (s *SQLiteStore) SetItem(ctx context.Context, key, value string) error {
	return s.SetItemTTL(ctx, key, value, 0)
}

// SetItemTTL stores value under key, expiring it after ttl when ttl > 0.
func (s *SQLiteStore) SetItemTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixNano()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO `+s.table+` (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, []byte(value), expiresAt,
	)
	return s.wrap(err)
}

// RemoveItem deletes key.
func (s *SQLiteStore) RemoveItem(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM `+s.table+` WHERE key = ?`, key)
	return s.wrap(err)
}

// Purge deletes every row past its native expiry and returns how many were
// removed.
func (s *SQLiteStore) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM `+s.table+` WHERE expires_at > 0 AND expires_at <= ?`, s.now().UnixNano())
	if err != nil {
		return 0, s.wrap(err)
	}
	return res.RowsAffected()
}

// Close closes the database. It is safe to call more than once.
func (s *SQLiteStore) Close() error {
	var err error
	s.once.Do(func() {
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteStore) wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("kvstore: sqlite: %w", err)
}

var _ TTLStore = (*SQLiteStore)(nil)
