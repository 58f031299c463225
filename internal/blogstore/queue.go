package blogstore

import (
	"sync"

	"github.com/roach88/blogdesk/internal/blog"
	"github.com/roach88/blogdesk/internal/paging"
)

// event is one phase of an operation, submitted to the Run loop.
type event struct {
	kind      Kind
	phase     Phase
	requestID string

	// cursor is the requested page for fetches. A pending next-page fetch
	// with cursor < 0 reads from the current page.
	cursor int
	page   paging.Page
	post   blog.Post
	id     int
	err    error

	reply chan outcome
}

// outcome is the loop's answer to an event.
type outcome struct {
	state  State
	cursor int
	err    error
}

// eventQueue is an unbounded FIFO of events.
//
// Enqueue is safe from any goroutine; the Run loop is the only consumer.
// The signal channel (buffer of 1) lets the loop wait with select and
// observe context cancellation.
type eventQueue struct {
	mu     sync.Mutex
	events []event
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue appends e. Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.events = append(q.events, e)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front event without blocking.
func (q *eventQueue) TryDequeue() (event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return event{}, false
	}

	e := q.events[0]
	// Clear the slot so the backing array does not pin page data.
	q.events[0] = event{}
	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}
	return e, true
}

// Wait returns a channel that fires when events may be available. It is
// closed by Close.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of queued events.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Drained reports whether the queue is closed and empty.
func (q *eventQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.events) == 0
}

// Close stops further enqueues and wakes the consumer.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
