package queue

import (
	"context"
	"sync"
)

// MemoryBackend keeps the queue document in process memory. Nothing survives a
// restart.
type MemoryBackend struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemoryBackend) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
	m.saves++
	return nil
}

func (m *MemoryBackend) Close() error { return nil }

// Saves reports how many times the document was written.
func (m *MemoryBackend) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func (m *MemoryBackend) CheckHealth(context.Context) (Health, error) {
	return Health{Backend: "memory", Location: "process", Ready: true}, nil
}
