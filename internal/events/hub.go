package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"hoist/internal/logging"
)

// Handler receives published events.
type Handler func(Event)

type subscription struct {
	id      uint64
	filter  Type
	handler Handler
}

// Hub fans events out to subscribers and remembers recent events.
type Hub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []Event
	nextSeq  uint64
	nextSub  uint64
	subs     []subscription
	logger   *slog.Logger
}

// NewHub constructs a hub that retains up to capacity recent events.
func NewHub(capacity int, logger *slog.Logger) *Hub {
	if capacity <= 0 {
		capacity = 512
	}
	h := &Hub{capacity: capacity, logger: logging.NewComponentLogger(logger, "events")}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Subscribe registers handler for one event type and returns a function that
// removes it.
func (h *Hub) Subscribe(t Type, handler Handler) func() {
	return h.add(t, handler)
}

// SubscribeAll registers handler for every event type.
func (h *Hub) SubscribeAll(handler Handler) func() {
	return h.add("", handler)
}

func (h *Hub) add(filter Type, handler Handler) func() {
	if h == nil || handler == nil {
		return func() {}
	}
	h.mu.Lock()
	h.nextSub++
	id := h.nextSub
	h.subs = append(h.subs, subscription{id: id, filter: filter, handler: handler})
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(id) })
	}
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, sub := range h.subs {
		if sub.id == id {
			h.subs = append(h.subs[:i:i], h.subs[i+1:]...)
			return
		}
	}
}

// Publish stamps evt with a sequence number, buffers it, and runs matching
// handlers synchronously in subscription order. The stamped event is returned.
func (h *Hub) Publish(evt Event) Event {
	if h == nil {
		return evt
	}
	h.mu.Lock()
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
	subs := append([]subscription(nil), h.subs...)
	h.cond.Broadcast()
	h.mu.Unlock()

	for _, sub := range subs {
		if sub.filter != "" && sub.filter != evt.Type {
			continue
		}
		h.dispatch(sub, evt)
	}
	return evt
}

func (h *Hub) dispatch(sub subscription, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(h.logger, "event handler panicked", "event_handler_panic",
				logging.String(logging.FieldUploadID, evt.ID),
				logging.String("type", string(evt.Type)),
				logging.String("panic", fmt.Sprint(r)),
				logging.String(logging.FieldErrorHint, "fix the listener; other listeners still ran"),
			)
		}
	}()
	sub.handler(evt)
}

// Fetch returns buffered events with sequence greater than since. When wait is
// true, Fetch blocks until at least one event is available or ctx ends.
func (h *Hub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]Event, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				h.cond.Broadcast()
				h.mu.Unlock()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		events, next := h.snapshotLocked(since, limit)
		if len(events) > 0 || !wait {
			return events, next, contextError(ctx)
		}
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
		h.cond.Wait()
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
	}
}

// Tail returns the most recent limit events without blocking.
func (h *Hub) Tail(limit int) ([]Event, uint64) {
	if h == nil {
		return nil, 0
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	start := len(h.buffer) - limit
	if start < 0 {
		start = 0
	}
	out := make([]Event, len(h.buffer)-start)
	copy(out, h.buffer[start:])
	return out, h.nextSeq
}

func (h *Hub) snapshotLocked(since uint64, limit int) ([]Event, uint64) {
	startIdx := -1
	for i, evt := range h.buffer {
		if evt.Sequence > since {
			startIdx = i
			break
		}
	}
	if startIdx < 0 {
		return nil, h.nextSeq
	}
	end := startIdx + limit
	if end > len(h.buffer) {
		end = len(h.buffer)
	}
	out := make([]Event, end-startIdx)
	copy(out, h.buffer[startIdx:end])
	return out, out[len(out)-1].Sequence
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
