package chat

import "sync"

// Overflow selects how a bounded Queue behaves when it is at capacity.
type Overflow int

const (
	// OverflowBlock makes Push wait until the broadcaster frees a slot.
	OverflowBlock Overflow = iota
	// OverflowDrop sheds the incoming message and records it as dropped.
	OverflowDrop
)

// Queue is the inbound message queue between connection handlers and the
// broadcaster: many producers, a single consumer, FIFO per producer.
// Unbounded by default; producers never wait on the consumer unless a
// capacity is configured.
type Queue struct {
	mu   sync.Mutex
	cond *sync.Cond

	buf      []Message
	capacity int
	overflow Overflow
	closed   bool
	dropped  uint64
}

// QueueOption customizes a Queue.
type QueueOption func(*Queue)

// WithCapacity bounds the queue to n pending messages. Zero or negative
// keeps it unbounded.
func WithCapacity(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// WithOverflow sets the at-capacity policy for a bounded queue.
func WithOverflow(p Overflow) QueueOption {
	return func(q *Queue) {
		q.overflow = p
	}
}

// NewQueue constructs an empty queue.
func NewQueue(options ...QueueOption) *Queue {
	q := &Queue{}
	q.cond = sync.NewCond(&q.mu)
	for _, option := range options {
		if option != nil {
			option(q)
		}
	}
	return q
}

// Push appends a message. It returns ErrQueueClosed after Close, and
// ErrQueueFull when a bounded queue with OverflowDrop is at capacity.
// With OverflowBlock it waits for the consumer instead.
func (q *Queue) Push(m Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.capacity > 0 && len(q.buf) >= q.capacity && q.overflow == OverflowBlock && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return ErrQueueClosed
	}
	if q.capacity > 0 && len(q.buf) >= q.capacity {
		q.dropped++
		return ErrQueueFull
	}

	q.buf = append(q.buf, m)
	q.cond.Broadcast()
	return nil
}

// Pop blocks until a message is available and returns it. The second result
// is false once the queue has been closed and fully drained.
func (q *Queue) Pop() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.buf) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.buf) == 0 {
		return Message{}, false
	}

	m := q.buf[0]
	q.buf = q.buf[1:]
	q.cond.Broadcast()
	return m, true
}

// Close marks the queue closed. Pending messages remain poppable; further
// pushes fail with ErrQueueClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// Len reports the number of pending messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Dropped reports how many messages were shed under OverflowDrop.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
