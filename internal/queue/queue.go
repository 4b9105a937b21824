package queue

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Queue is the ordered list of pending uploads, persisted on every mutation.
// It is safe for concurrent use; callers that need read-then-write atomicity
// (such as "was empty, then push") serialize above it.
type Queue struct {
	mu      sync.Mutex
	backend Backend
	entries []Entry
	now     func() time.Time
}

// Open loads the persisted document from backend.
func Open(ctx context.Context, backend Backend) (*Queue, error) {
	data, err := backend.Load(ensureContext(ctx))
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	entries, err := Decode(data)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	return &Queue{backend: backend, entries: entries, now: time.Now}, nil
}

// Push appends entry to the tail. EnqueuedAt is stamped when zero.
func (q *Queue) Push(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		return fmt.Errorf("queue push: entry has no id")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if entry.EnqueuedAt.IsZero() {
		entry.EnqueuedAt = q.now().UTC()
	}
	previous := q.entries
	next := make([]Entry, len(previous), len(previous)+1)
	copy(next, previous)
	next = append(next, entry.clone())
	return q.commitLocked(ctx, "push", previous, next)
}

// Peek returns the head without removing it.
func (q *Queue) Peek() (Entry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return Entry{}, false
	}
	return q.entries[0].clone(), true
}

// Remove deletes the entry with id wherever it sits. It reports whether an
// entry was removed and the index it occupied (-1 when absent). Removing an
// unknown id is a no-op and does not touch the backend.
func (q *Queue) Remove(ctx context.Context, id string) (bool, int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	index := q.indexLocked(id)
	if index < 0 {
		return false, -1, nil
	}
	previous := q.entries
	next := make([]Entry, 0, len(previous)-1)
	next = append(next, previous[:index]...)
	next = append(next, previous[index+1:]...)
	if err := q.commitLocked(ctx, "remove", previous, next); err != nil {
		return false, index, err
	}
	return true, index, nil
}

// Clear empties the queue and returns how many entries were dropped.
func (q *Queue) Clear(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	previous := q.entries
	if err := q.commitLocked(ctx, "clear", previous, nil); err != nil {
		return 0, err
	}
	return len(previous), nil
}

// Len returns the number of pending entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// IsEmpty reports whether no entries are pending.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Contains reports whether id is queued.
func (q *Queue) Contains(id string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.indexLocked(id) >= 0
}

// Entries returns a copy of the queue in order, head first.
func (q *Queue) Entries() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Entry, len(q.entries))
	for i, entry := range q.entries {
		out[i] = entry.clone()
	}
	return out
}

// Backend exposes the persistence backend for diagnostics.
func (q *Queue) Backend() Backend {
	return q.backend
}

// Close releases the backend.
func (q *Queue) Close() error {
	if q == nil || q.backend == nil {
		return nil
	}
	return q.backend.Close()
}

func (q *Queue) indexLocked(id string) int {
	for i, entry := range q.entries {
		if entry.ID == id {
			return i
		}
	}
	return -1
}

// commitLocked persists next and installs it. On failure the previous slice
// stays in place.
func (q *Queue) commitLocked(ctx context.Context, op string, previous, next []Entry) error {
	data, err := Encode(next)
	if err != nil {
		return &PersistenceError{Op: op, Err: err}
	}
	if err := q.backend.Save(ensureContext(ctx), data); err != nil {
		q.entries = previous
		return &PersistenceError{Op: op, Err: err}
	}
	q.entries = next
	return nil
}
