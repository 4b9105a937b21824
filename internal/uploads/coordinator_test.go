package uploads_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoist/internal/events"
	"hoist/internal/queue"
	"hoist/internal/request"
	"hoist/internal/uploads"
)

type submitLog struct {
	ids []string
}

func (s *submitLog) submit(_ context.Context, req request.Request) error {
	s.ids = append(s.ids, req.ID)
	return nil
}

func newCoordinator(t *testing.T, backend *queue.MemoryBackend) (*uploads.Coordinator, *submitLog, *[]events.Event) {
	t.Helper()
	q, err := queue.Open(context.Background(), backend)
	require.NoError(t, err)
	log := &submitLog{}
	var published []events.Event
	c, err := uploads.NewCoordinator(uploads.CoordinatorOptions{
		Queue:   q,
		Submit:  log.submit,
		Publish: func(n uploads.Notice) { published = append(published, n.Event) },
	})
	require.NoError(t, err)
	return c, log, &published
}

func TestOnTerminalUnknownIDIsNoOp(t *testing.T) {
	backend := queue.NewMemoryBackend()
	c, log, published := newCoordinator(t, backend)

	_, err := c.Enqueue(context.Background(), request.Options{"url": "https://x.test/", "path": "/tmp/a", "customUploadId": "a"})
	require.NoError(t, err)
	saves := backend.Saves()

	c.OnTerminal(context.Background(), "missing")
	c.OnTerminal(context.Background(), "")

	assert.Equal(t, saves, backend.Saves())
	assert.Equal(t, []string{"a"}, log.ids)
	assert.Equal(t, "a", c.InFlight())
	assert.Len(t, c.List(), 1)
	assert.Empty(t, *published)
}

func TestOnTerminalForWaitingEntryDoesNotAdvance(t *testing.T) {
	c, log, _ := newCoordinator(t, queue.NewMemoryBackend())
	for _, id := range []string{"a", "b", "c"} {
		_, err := c.Enqueue(context.Background(), request.Options{"url": "https://x.test/", "path": "/tmp/" + id, "customUploadId": id})
		require.NoError(t, err)
	}

	c.OnTerminal(context.Background(), "b")
	assert.Equal(t, []string{"a"}, log.ids)
	require.Len(t, c.List(), 2)
	assert.Equal(t, "c", c.List()[1].ID)

	c.OnTerminal(context.Background(), "a")
	assert.Equal(t, []string{"a", "c"}, log.ids)
}

func TestCoordinatorRequiresCollaborators(t *testing.T) {
	_, err := uploads.NewCoordinator(uploads.CoordinatorOptions{})
	assert.Error(t, err)

	q, err := queue.Open(context.Background(), queue.NewMemoryBackend())
	require.NoError(t, err)
	_, err = uploads.NewCoordinator(uploads.CoordinatorOptions{Queue: q})
	assert.Error(t, err)
}

func TestCoordinatorHaltFreezesQueue(t *testing.T) {
	c, log, _ := newCoordinator(t, queue.NewMemoryBackend())
	for _, id := range []string{"a", "b"} {
		_, err := c.Enqueue(context.Background(), request.Options{"url": "https://x.test/", "path": "/tmp/" + id, "customUploadId": id})
		require.NoError(t, err)
	}
	c.Halt()
	c.OnTerminal(context.Background(), "a")
	assert.Len(t, c.List(), 2)
	assert.Equal(t, []string{"a"}, log.ids)
}

func TestEnqueueRejectsIDRunningOutsideQueue(t *testing.T) {
	q, err := queue.Open(context.Background(), queue.NewMemoryBackend())
	require.NoError(t, err)
	log := &submitLog{}
	c, err := uploads.NewCoordinator(uploads.CoordinatorOptions{
		Queue:  q,
		Submit: log.submit,
		Active: func(id string) bool { return id == "direct" },
	})
	require.NoError(t, err)

	_, err = c.Enqueue(context.Background(), request.Options{"url": "https://x.test/", "path": "/tmp/d", "customUploadId": "direct"})
	assert.ErrorIs(t, err, uploads.ErrDuplicateID)
	assert.Empty(t, c.List())
	assert.Empty(t, log.ids)
}

func TestStartDirectRefusesClaimedIDs(t *testing.T) {
	c, _, _ := newCoordinator(t, queue.NewMemoryBackend())
	for _, id := range []string{"a", "b"} {
		_, err := c.Enqueue(context.Background(), request.Options{"url": "https://x.test/", "path": "/tmp/" + id, "customUploadId": id})
		require.NoError(t, err)
	}
	_, err := c.Clear(context.Background())
	require.NoError(t, err)

	started := false
	start := func() error { started = true; return nil }
	assert.ErrorIs(t, c.StartDirect("a", start), uploads.ErrDuplicateID)
	assert.False(t, started)

	require.NoError(t, c.StartDirect("b", start))
	assert.True(t, started)
}

func TestCancelQueuedNoticeCarriesOptions(t *testing.T) {
	q, err := queue.Open(context.Background(), queue.NewMemoryBackend())
	require.NoError(t, err)
	var notices []uploads.Notice
	c, err := uploads.NewCoordinator(uploads.CoordinatorOptions{
		Queue:   q,
		Submit:  (&submitLog{}).submit,
		Publish: func(n uploads.Notice) { notices = append(notices, n) },
	})
	require.NoError(t, err)

	for _, id := range []string{"a", "b"} {
		_, err := c.Enqueue(context.Background(), request.Options{"url": "https://x.test/", "path": "/tmp/" + id, "customUploadId": id})
		require.NoError(t, err)
	}
	removed, err := c.CancelQueued(context.Background(), "b")
	require.NoError(t, err)
	require.True(t, removed)

	require.Len(t, notices, 1)
	assert.Equal(t, events.TypeCancelled, notices[0].Event.Type)
	assert.Equal(t, "/tmp/b", notices[0].Options["path"])
}
