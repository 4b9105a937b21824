package queue

import (
	"context"
	"fmt"

	"hoist/internal/config"
)

// Backend stores the serialized queue document as one durable record.
type Backend interface {
	// Load returns the stored document, or nil when nothing was saved yet.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the stored document. It must not return before the write
	// is durable.
	Save(ctx context.Context, data []byte) error
	Close() error
}

// Health describes the state of a backend for diagnostics.
type Health struct {
	Backend  string `json:"backend"`
	Location string `json:"location"`
	Ready    bool   `json:"ready"`
	Detail   string `json:"detail,omitempty"`
}

// HealthChecker is implemented by backends that can report diagnostics.
type HealthChecker interface {
	CheckHealth(ctx context.Context) (Health, error)
}

// OpenBackend constructs the backend selected by cfg.Queue.Backend.
func OpenBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Queue.Backend {
	case config.QueueBackendSQLite, "":
		if err := cfg.EnsureDirectories(); err != nil {
			return nil, fmt.Errorf("ensure directories: %w", err)
		}
		return OpenSQLite(ctx, cfg.QueueDBPath())
	case config.QueueBackendRedis:
		return OpenRedis(ctx, RedisOptions{
			Addr:     cfg.Queue.RedisAddr,
			Password: cfg.Queue.RedisPassword,
			DB:       cfg.Queue.RedisDB,
			Key:      cfg.Queue.RedisKey,
		})
	case config.QueueBackendMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unsupported queue backend %q", cfg.Queue.Backend)
	}
}
