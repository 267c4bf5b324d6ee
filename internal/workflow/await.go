package workflow

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrAwaitTimeout indicates no matching event arrived within the window.
var ErrAwaitTimeout = errors.New("timed out waiting for event")

// Dispatcher is the awaited-event primitive: a bounded wait for the next
// external event matching a predicate. Each matching event is consumed by
// at most one waiter, exactly once; after a waiter times out, late matching
// events are no longer consumed.
type Dispatcher struct {
	mu      sync.Mutex
	waiters []*waiter
}

type waiter struct {
	match func(Event) bool
	ch    chan Event
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Offer hands an event to the first registered waiter whose predicate
// matches, removing that waiter. Reports whether the event was consumed.
func (d *Dispatcher) Offer(ev Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, w := range d.waiters {
		if w.match(ev) {
			d.waiters = append(d.waiters[:i], d.waiters[i+1:]...)
			w.ch <- ev
			return true
		}
	}
	return false
}

// Await blocks until the next event matching the predicate arrives, the
// timeout elapses, or the context is cancelled — whichever comes first.
func (d *Dispatcher) Await(ctx context.Context, match func(Event) bool, timeout time.Duration) (Event, error) {
	return d.wait(ctx, d.register(match), timeout)
}

// register adds a waiter without blocking. Callers that must publish a
// prompt before waiting register first, so an event arriving between the
// prompt going out and wait starting is still claimed.
func (d *Dispatcher) register(match func(Event) bool) *waiter {
	w := &waiter{match: match, ch: make(chan Event, 1)}
	d.mu.Lock()
	d.waiters = append(d.waiters, w)
	d.mu.Unlock()
	return w
}

// wait blocks on a registered waiter until delivery, timeout, or
// cancellation.
func (d *Dispatcher) wait(ctx context.Context, w *waiter, timeout time.Duration) (Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ev := <-w.ch:
		return ev, nil
	case <-timer.C:
		return d.abandon(w, ErrAwaitTimeout)
	case <-ctx.Done():
		return d.abandon(w, ctx.Err())
	}
}

// abandon deregisters a waiter. An event delivered in the race window
// between the timer firing and deregistration still wins.
func (d *Dispatcher) abandon(w *waiter, cause error) (Event, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	select {
	case ev := <-w.ch:
		return ev, nil
	default:
	}
	for i, cand := range d.waiters {
		if cand == w {
			d.waiters = append(d.waiters[:i], d.waiters[i+1:]...)
			break
		}
	}
	return Event{}, cause
}
