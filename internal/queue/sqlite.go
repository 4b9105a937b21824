package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBackend stores the queue document in a single-row SQLite table.
type SQLiteBackend struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// OpenSQLite opens (creating if needed) the queue database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteBackend, error) {
	ctx = ensureContext(ctx)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single connection: statements against the queue file never interleave.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	backend := &SQLiteBackend{db: db, path: path}
	if err := backend.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return backend, nil
}

// Path returns the database file location.
func (s *SQLiteBackend) Path() string {
	return s.path
}

func (s *SQLiteBackend) Load(ctx context.Context) ([]byte, error) {
	ctx = ensureContext(ctx)
	var payload []byte
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, "SELECT payload FROM queue_state WHERE name = ?", RecordKey).Scan(&payload)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load queue state: %w", err)
	}
	return payload, nil
}

func (s *SQLiteBackend) Save(ctx context.Context, data []byte) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err := retryOnBusy(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, `INSERT INTO queue_state (name, payload, updated_at) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
			RecordKey, data, now)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("save queue state: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteBackend) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// CheckHealth returns diagnostic information about the queue database.
func (s *SQLiteBackend) CheckHealth(ctx context.Context) (Health, error) {
	health := Health{Backend: "sqlite", Location: s.path}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.Detail = "database file missing"
			return health, nil
		}
		return health, fmt.Errorf("stat queue database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("queue database path %q is a directory", s.path)
	}

	connCtx, cancel := context.WithTimeout(ensureContext(ctx), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Detail = err.Error()
		return health, fmt.Errorf("ping queue database: %w", err)
	}

	var integrity string
	if err := s.db.QueryRowContext(connCtx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Detail = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	if !strings.EqualFold(integrity, "ok") {
		health.Detail = "integrity check: " + integrity
		return health, nil
	}
	health.Ready = true
	return health, nil
}
