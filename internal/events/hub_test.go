package events_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hoist/internal/events"
	"hoist/internal/logging"
)

func TestTerminalTypes(t *testing.T) {
	assert.False(t, events.TypeProgress.Terminal())
	assert.True(t, events.TypeCompleted.Terminal())
	assert.True(t, events.TypeError.Terminal())
	assert.True(t, events.TypeCancelled.Terminal())

	parsed, err := events.ParseType(" Completed ")
	require.NoError(t, err)
	assert.Equal(t, events.TypeCompleted, parsed)
	_, err = events.ParseType("success")
	assert.Error(t, err)
}

func TestSubscribeFiltersByType(t *testing.T) {
	hub := events.NewHub(8, logging.NewNop())
	var progress, all []events.Event
	hub.Subscribe(events.TypeProgress, func(e events.Event) { progress = append(progress, e) })
	hub.SubscribeAll(func(e events.Event) { all = append(all, e) })

	hub.Publish(events.Progress("a", 10))
	hub.Publish(events.Completed("a", 201, "ok"))

	require.Len(t, progress, 1)
	assert.Equal(t, 10, progress[0].Progress)
	require.Len(t, all, 2)
	assert.Equal(t, events.TypeCompleted, all[1].Type)
	assert.Equal(t, 201, all[1].StatusCode)
	assert.Less(t, all[0].Sequence, all[1].Sequence)
	assert.False(t, all[1].Timestamp.IsZero())
}

func TestHandlersRunInSubscriptionOrder(t *testing.T) {
	hub := events.NewHub(8, nil)
	var order []string
	hub.SubscribeAll(func(events.Event) { order = append(order, "first") })
	hub.Subscribe(events.TypeError, func(events.Event) { order = append(order, "second") })
	hub.SubscribeAll(func(events.Event) { order = append(order, "third") })

	hub.Publish(events.Failed("a", assert.AnError))
	assert.Equal(t, []string{"first", "second", "third"}, order)
}

func TestUnsubscribe(t *testing.T) {
	hub := events.NewHub(8, nil)
	calls := 0
	unsubscribe := hub.SubscribeAll(func(events.Event) { calls++ })
	hub.Publish(events.Cancelled("a"))
	unsubscribe()
	unsubscribe()
	hub.Publish(events.Cancelled("b"))
	assert.Equal(t, 1, calls)
}

func TestPanickingHandlerIsRecovered(t *testing.T) {
	hub := events.NewHub(8, logging.NewNop())
	reached := false
	hub.SubscribeAll(func(events.Event) { panic("boom") })
	hub.SubscribeAll(func(events.Event) { reached = true })

	assert.NotPanics(t, func() { hub.Publish(events.Progress("a", 1)) })
	assert.True(t, reached)
}

func TestRingBufferKeepsMostRecent(t *testing.T) {
	hub := events.NewHub(3, nil)
	for i := 0; i < 5; i++ {
		hub.Publish(events.Progress("a", i*10))
	}
	tail, next := hub.Tail(0)
	require.Len(t, tail, 3)
	assert.Equal(t, uint64(5), next)
	assert.Equal(t, 20, tail[0].Progress)
	assert.Equal(t, 40, tail[2].Progress)
}

func TestFetchPagesBySequence(t *testing.T) {
	hub := events.NewHub(10, nil)
	for i := 0; i < 4; i++ {
		hub.Publish(events.Progress("a", i))
	}
	page, next, err := hub.Fetch(context.Background(), 0, 2, false)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(2), next)

	page, next, err = hub.Fetch(context.Background(), next, 10, false)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(4), next)

	page, _, err = hub.Fetch(context.Background(), next, 10, false)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestFetchWaitsForNewEvents(t *testing.T) {
	hub := events.NewHub(10, nil)
	var wg sync.WaitGroup
	wg.Add(1)
	var got []events.Event
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		got, _, _ = hub.Fetch(ctx, 0, 10, true)
	}()

	time.Sleep(20 * time.Millisecond)
	hub.Publish(events.Completed("a", 200, ""))
	wg.Wait()
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestFetchReturnsOnContextCancel(t *testing.T) {
	hub := events.NewHub(10, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, _, err := hub.Fetch(ctx, 0, 10, true)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
