package transport

import (
	"sync"

	"github.com/Giovanni-Lovison/VCore/pkg/wire"
)

// Queue is the response queue between the line reader (sole producer) and
// correlation waiters (consumers). It is an unbounded FIFO; a message is
// removed by at most one consumer. Requeue reinserts messages ahead of
// everything already queued so that a later waiter observes them before
// newer arrivals.
type Queue struct {
	mu    sync.Mutex
	items []*wire.Message
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends a message at the back of the queue.
func (q *Queue) Push(msg *wire.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, msg)
}

// Requeue reinserts messages at the front of the queue, preserving their
// relative order. Used by waiters to return messages collected while
// waiting for an unrelated action.
func (q *Queue) Requeue(msgs ...*wire.Message) {
	if len(msgs) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(append(make([]*wire.Message, 0, len(msgs)+len(q.items)), msgs...), q.items...)
}

// TryPop removes and returns the message at the front of the queue.
// Returns (nil, false) when the queue is empty; it never blocks.
func (q *Queue) TryPop() (*wire.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, false
	}
	msg := q.items[0]
	q.items = q.items[1:]
	return msg, true
}

// Drain removes and returns all queued messages, oldest first.
// Used before device enumeration to discard stale replies.
func (q *Queue) Drain() []*wire.Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	items := q.items
	q.items = nil
	return items
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
