package uploads

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"hoist/internal/events"
	"hoist/internal/logging"
	"hoist/internal/queue"
	"hoist/internal/request"
)

// Coordinator owns the persisted queue and decides when its head is handed to
// the transport. Every queue mutation happens under mu.
//
// inFlight is the id of the queued upload currently with the transport. While
// it is set no other queued upload is submitted, even if the entry itself was
// cleared from the queue. A queue opened non-empty starts paused: its head is
// only submitted after Resume.
//
// An upload id is claimed while it is queued, in flight, or reported by active
// (direct uploads still running). Claimed ids cannot be queued or started
// again.
type Coordinator struct {
	mu        sync.Mutex
	queue     *queue.Queue
	submit    func(context.Context, request.Request) error
	normalize func(request.Options) (request.Request, error)
	publish   func(Notice)
	active    func(id string) bool
	logger    *slog.Logger

	inFlight string
	paused   bool
	halted   bool
}

// Notice is an event the coordinator raises itself, for an upload that never
// reached the transport. Options are the queued entry's options.
type Notice struct {
	Event   events.Event
	Options request.Options
}

// CoordinatorOptions wires a Coordinator to its collaborators.
type CoordinatorOptions struct {
	Queue     *queue.Queue
	Submit    func(context.Context, request.Request) error
	Normalize func(request.Options) (request.Request, error)
	Publish   func(Notice)
	// Active reports ids the transport is running outside the queue.
	Active func(id string) bool
	Logger *slog.Logger
}

// NewCoordinator builds a coordinator over an opened queue.
func NewCoordinator(opts CoordinatorOptions) (*Coordinator, error) {
	if opts.Queue == nil {
		return nil, fmt.Errorf("coordinator: queue is required")
	}
	if opts.Submit == nil {
		return nil, fmt.Errorf("coordinator: submit function is required")
	}
	if opts.Normalize == nil {
		opts.Normalize = request.Normalize
	}
	if opts.Publish == nil {
		opts.Publish = func(Notice) {}
	}
	if opts.Active == nil {
		opts.Active = func(string) bool { return false }
	}
	return &Coordinator{
		queue:     opts.Queue,
		submit:    opts.Submit,
		normalize: opts.Normalize,
		publish:   opts.Publish,
		active:    opts.Active,
		logger:    logging.NewComponentLogger(opts.Logger, "coordinator"),
		paused:    !opts.Queue.IsEmpty(),
	}, nil
}

// Enqueue validates opts, appends them to the queue and, when the queue was
// empty, submits the new head. The id is returned even when that submission
// fails; the failure surfaces as an error event.
func (c *Coordinator) Enqueue(ctx context.Context, opts request.Options) (string, error) {
	stamped, id := request.AssignID(opts)
	if _, err := c.normalize(stamped); err != nil {
		return "", err
	}

	c.mu.Lock()
	if c.claimedLocked(id) {
		c.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	wasEmpty := c.queue.IsEmpty()
	if err := c.queue.Push(ctx, queue.Entry{ID: id, Options: stamped}); err != nil {
		c.mu.Unlock()
		return "", err
	}
	if wasEmpty {
		c.paused = false
	}
	c.mu.Unlock()

	c.logger.Info("upload queued",
		logging.String(logging.FieldUploadID, id),
		logging.String(logging.FieldEventType, "upload_queued"),
		logging.Bool("was_empty", wasEmpty),
	)
	if wasEmpty {
		c.advance(ctx)
	}
	return id, nil
}

// StartDirect runs start for a direct upload of id while no queue mutation can
// interleave. It fails with ErrDuplicateID when id is queued or in flight.
func (c *Coordinator) StartDirect(id string, start func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.queue.Contains(id) || id == c.inFlight {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	return start()
}

// OnTerminal removes id from the queue and advances to the next head when the
// removed entry was the one in flight. Unknown ids are ignored.
func (c *Coordinator) OnTerminal(ctx context.Context, id string) {
	c.mu.Lock()
	if c.halted {
		c.mu.Unlock()
		return
	}
	wasInFlight := id != "" && id == c.inFlight
	if wasInFlight {
		c.inFlight = ""
	}
	removed, index, err := c.queue.Remove(ctx, id)
	if err != nil {
		c.paused = true
		c.mu.Unlock()
		logging.ErrorWithContext(c.logger, "failed to remove finished upload from queue", "queue_remove_failed",
			logging.String(logging.FieldUploadID, id),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "fix queue storage, then run hoist queue resume"),
		)
		return
	}
	next := wasInFlight || (removed && index == 0)
	c.mu.Unlock()

	if removed {
		c.logger.Debug("upload removed from queue",
			logging.String(logging.FieldUploadID, id),
			logging.Int("index", index),
		)
	}
	if next {
		c.advance(ctx)
	}
}

// CancelQueued removes id when it is queued but not yet submitted and emits a
// cancelled event for it. It reports false when id is not waiting in the
// queue, including when it is the upload in flight.
func (c *Coordinator) CancelQueued(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	if id == c.inFlight || !c.queue.Contains(id) {
		c.mu.Unlock()
		return false, nil
	}
	var opts request.Options
	for _, entry := range c.queue.Entries() {
		if entry.ID == id {
			opts = entry.Options
			break
		}
	}
	removed, _, err := c.queue.Remove(ctx, id)
	c.mu.Unlock()
	if err != nil {
		return false, err
	}
	if removed {
		c.logger.Info("queued upload cancelled",
			logging.String(logging.FieldUploadID, id),
			logging.String(logging.FieldEventType, "upload_cancelled"),
		)
		c.publish(Notice{Event: events.Cancelled(id), Options: opts})
	}
	return removed, nil
}

// Clear drops every queued entry. The upload in flight keeps running and the
// next queued upload waits for its terminal event.
func (c *Coordinator) Clear(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, err := c.queue.Clear(ctx)
	if err != nil {
		return 0, err
	}
	c.paused = false
	c.logger.Info("upload queue cleared",
		logging.Int("removed", n),
		logging.String(logging.FieldEventType, "queue_cleared"),
	)
	return n, nil
}

// Resume submits the head of a paused queue. It reports whether an upload was
// handed to the transport.
func (c *Coordinator) Resume(ctx context.Context) bool {
	c.mu.Lock()
	c.paused = false
	c.halted = false
	c.mu.Unlock()
	return c.advance(ctx)
}

// Halt stops queue bookkeeping for shutdown: terminal events no longer remove
// entries, so uploads cancelled by the shutdown stay queued.
func (c *Coordinator) Halt() {
	c.mu.Lock()
	c.halted = true
	c.mu.Unlock()
}

// IsEmpty reports whether no uploads are queued.
func (c *Coordinator) IsEmpty() bool {
	return c.queue.IsEmpty()
}

// Contains reports whether id is queued.
func (c *Coordinator) Contains(id string) bool {
	return c.queue.Contains(id)
}

// List returns the queued entries, head first.
func (c *Coordinator) List() []queue.Entry {
	return c.queue.Entries()
}

// InFlight returns the id of the queued upload with the transport, if any.
func (c *Coordinator) InFlight() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Paused reports whether the queue is waiting for Resume.
func (c *Coordinator) Paused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// advance submits the head, reporting each head that cannot start before the
// next one is tried. It reports whether an upload was handed to the transport.
func (c *Coordinator) advance(ctx context.Context) bool {
	for {
		c.mu.Lock()
		failed, started := c.submitHeadLocked(ctx)
		c.mu.Unlock()
		if failed == nil {
			return started
		}
		c.publish(*failed)
	}
}

// claimedLocked reports whether id belongs to an upload still being tracked.
func (c *Coordinator) claimedLocked(id string) bool {
	return c.queue.Contains(id) || id == c.inFlight || c.active(id)
}

// submitHeadLocked hands the head to the transport. A head that fails
// validation or submission is removed and returned as an error notice; the
// caller publishes it before trying the next head.
func (c *Coordinator) submitHeadLocked(ctx context.Context) (*Notice, bool) {
	if c.paused || c.halted || c.inFlight != "" {
		return nil, false
	}
	head, ok := c.queue.Peek()
	if !ok {
		return nil, false
	}

	req, err := c.normalize(head.Options)
	if err == nil {
		req.ID = head.ID
		err = c.submit(ctx, req)
	}
	if err == nil {
		c.inFlight = head.ID
		c.logger.Info("queued upload submitted",
			logging.String(logging.FieldUploadID, head.ID),
			logging.String(logging.FieldEventType, "queue_head_submitted"),
			logging.Int("remaining", c.queue.Len()),
		)
		return nil, true
	}

	logging.ErrorWithContext(c.logger, "queued upload could not start", "queue_head_failed",
		logging.String(logging.FieldUploadID, head.ID),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the upload url and file; the queue moves on"),
	)
	if _, _, rmErr := c.queue.Remove(ctx, head.ID); rmErr != nil {
		c.paused = true
		logging.ErrorWithContext(c.logger, "failed to drop unstartable upload from queue", "queue_remove_failed",
			logging.String(logging.FieldUploadID, head.ID),
			logging.Error(rmErr),
			logging.String(logging.FieldErrorHint, "fix queue storage, then run hoist queue resume"),
		)
	}
	return &Notice{Event: events.Failed(head.ID, err), Options: head.Options}, false
}
