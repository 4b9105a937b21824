// Package transporttest provides an in-memory Transport for tests.
package transporttest

import (
	"context"
	"sort"
	"sync"

	"hoist/internal/events"
	"hoist/internal/request"
)

// Fake records submissions and emits events only when told to.
type Fake struct {
	mu         sync.Mutex
	submitted  []request.Request
	active     map[string]bool
	cancelled  []string
	submitErrs map[string]error
	submitErr  error
	events     chan events.Event
	closed     bool
}

// New constructs a Fake with a generously buffered event channel.
func New() *Fake {
	return &Fake{
		active:     make(map[string]bool),
		submitErrs: make(map[string]error),
		events:     make(chan events.Event, 256),
	}
}

// Submit records req unless a failure was scripted for it.
func (f *Fake) Submit(_ context.Context, req request.Request) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.submitErrs[req.ID]; ok {
		return err
	}
	if f.submitErr != nil {
		return f.submitErr
	}
	f.submitted = append(f.submitted, req)
	f.active[req.ID] = true
	return nil
}

// Cancel emits a cancelled event for an active id.
func (f *Fake) Cancel(id string) bool {
	f.mu.Lock()
	if !f.active[id] {
		f.mu.Unlock()
		return false
	}
	delete(f.active, id)
	f.cancelled = append(f.cancelled, id)
	f.mu.Unlock()
	f.events <- events.Cancelled(id)
	return true
}

// CancelAll cancels every active id in sorted order.
func (f *Fake) CancelAll() {
	for _, id := range f.Active() {
		f.Cancel(id)
	}
}

// Events implements transport.Transport.
func (f *Fake) Events() <-chan events.Event {
	return f.events
}

// FailSubmit makes Submit return err for id.
func (f *Fake) FailSubmit(id string, err error) {
	f.mu.Lock()
	f.submitErrs[id] = err
	f.mu.Unlock()
}

// FailAllSubmits makes every Submit return err until called with nil.
func (f *Fake) FailAllSubmits(err error) {
	f.mu.Lock()
	f.submitErr = err
	f.mu.Unlock()
}

// Submitted returns accepted requests in submission order.
func (f *Fake) Submitted() []request.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]request.Request(nil), f.submitted...)
}

// SubmittedIDs returns accepted ids in submission order.
func (f *Fake) SubmittedIDs() []string {
	reqs := f.Submitted()
	ids := make([]string, len(reqs))
	for i, req := range reqs {
		ids[i] = req.ID
	}
	return ids
}

// Active returns ids that have not produced a terminal event.
func (f *Fake) Active() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.active))
	for id := range f.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Cancelled returns ids cancelled through Cancel or CancelAll.
func (f *Fake) Cancelled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancelled...)
}

// Emit pushes evt onto the event channel as if the transport produced it.
func (f *Fake) Emit(evt events.Event) {
	if evt.Type.Terminal() {
		f.mu.Lock()
		delete(f.active, evt.ID)
		f.mu.Unlock()
	}
	f.events <- evt
}

// Progress emits a progress event.
func (f *Fake) Progress(id string, percent int) { f.Emit(events.Progress(id, percent)) }

// Complete emits a completed event.
func (f *Fake) Complete(id string, status int, body string) {
	f.Emit(events.Completed(id, status, body))
}

// Fail emits an error event.
func (f *Fake) Fail(id string, err error) { f.Emit(events.Failed(id, err)) }

// Close closes the event channel.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.events)
	}
	return nil
}
