package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitReceivesMatchingEvent(t *testing.T) {
	d := NewDispatcher()

	var wg sync.WaitGroup
	wg.Add(1)
	var got Event
	var err error
	go func() {
		defer wg.Done()
		got, err = d.Await(context.Background(), func(ev Event) bool {
			return ev.Token == "edit:confirm:n1"
		}, time.Second)
	}()

	// Let the waiter register before publishing.
	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return len(d.waiters) == 1
	}, time.Second, time.Millisecond)

	assert.False(t, d.Offer(Event{Token: "edit:cancel:other"}), "non-matching event must not be consumed")
	assert.True(t, d.Offer(Event{Token: "edit:confirm:n1", Author: "alice"}))

	wg.Wait()
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Author)
}

func TestAwaitTimesOut(t *testing.T) {
	d := NewDispatcher()

	_, err := d.Await(context.Background(), func(Event) bool { return true }, 10*time.Millisecond)
	assert.ErrorIs(t, err, ErrAwaitTimeout)

	// The waiter is gone: a late matching event is not consumed.
	assert.False(t, d.Offer(Event{Token: "edit:confirm:n1"}))
}

func TestAwaitConsumedExactlyOnce(t *testing.T) {
	d := NewDispatcher()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = d.Await(context.Background(), func(Event) bool { return true }, time.Second)
	}()

	require.Eventually(t, func() bool {
		d.mu.Lock()
		defer d.mu.Unlock()
		return len(d.waiters) == 1
	}, time.Second, time.Millisecond)

	assert.True(t, d.Offer(Event{}))
	<-done
	// The same waiter cannot consume a second event.
	assert.False(t, d.Offer(Event{}))
}

func TestAwaitCancelledByContext(t *testing.T) {
	d := NewDispatcher()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	_, err := d.Await(ctx, func(Event) bool { return true }, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}
