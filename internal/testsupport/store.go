package testsupport

import (
	"context"
	"errors"
	"sync"
	"testing"

	"hoist/internal/config"
	"hoist/internal/queue"
)

// ErrInjectedSave is returned by FlakyBackend while saves are failing.
var ErrInjectedSave = errors.New("injected save failure")

// MustOpenQueue opens the configured backend and queue for tests and
// registers cleanup.
func MustOpenQueue(t testing.TB, cfg *config.Config) *queue.Queue {
	t.Helper()

	backend, err := queue.OpenBackend(context.Background(), cfg)
	if err != nil {
		t.Fatalf("queue.OpenBackend: %v", err)
	}
	q, err := queue.Open(context.Background(), backend)
	if err != nil {
		_ = backend.Close()
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = q.Close()
	})
	return q
}

// FlakyBackend is an in-memory backend whose saves can be switched to fail.
type FlakyBackend struct {
	*queue.MemoryBackend

	mu   sync.Mutex
	fail bool
}

// NewFlakyBackend returns a working FlakyBackend.
func NewFlakyBackend() *FlakyBackend {
	return &FlakyBackend{MemoryBackend: queue.NewMemoryBackend()}
}

// FailSaves toggles injected save failures.
func (f *FlakyBackend) FailSaves(fail bool) {
	f.mu.Lock()
	f.fail = fail
	f.mu.Unlock()
}

func (f *FlakyBackend) Save(ctx context.Context, data []byte) error {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return ErrInjectedSave
	}
	return f.MemoryBackend.Save(ctx, data)
}
