package engine

import (
	"sync"

	"github.com/roach88/querystate/internal/ir"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventNavigation is a location change delivered by the navigator.
	EventNavigation EventType = iota + 1
	// EventCancel reports that the in-flight navigation was cancelled.
	EventCancel
)

func (t EventType) String() string {
	switch t {
	case EventNavigation:
		return "navigation"
	case EventCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// Event is one message from the navigation subsystem.
type Event struct {
	Type EventType

	// URL is the target location: path plus raw query.
	URL string

	// Chain is the root-to-leaf route node chain the navigator matched for
	// URL. Path matching is the navigator's job, not the engine's.
	Chain []*ir.RouteNode

	// Cause is the token of the NavigationRequest this event answers, or
	// empty for navigations the engine did not request.
	Cause string
}

// eventQueue is a thread-safe FIFO queue for navigation events.
//
// Navigators may enqueue from any goroutine while the Engine's Run loop
// dequeues. The signal channel lets Run wait with a context.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // buffered, size 1
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front event without blocking.
// Returns (Event{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]

	// Release the route chain reference held by the backing array.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
// The channel is closed when the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
