package chat

import (
	"log"
	"sync"
)

// Broadcaster owns the authoritative set of live sinks and fans every
// inbound message out to all of them. It is the only writer of the registry;
// registration and a fan-out pass are serialized through one mutex, so a
// sink registered mid-stream sees every message broadcast after its
// registration and none from before.
type Broadcaster struct {
	queue  *Queue
	logger *log.Logger

	mu    sync.Mutex
	sinks map[string]*Sink
}

type broadcasterOption func(*Broadcaster)

// WithLogger overrides the broadcaster's logger.
func WithLogger(logger *log.Logger) broadcasterOption {
	return func(b *Broadcaster) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBroadcaster constructs a broadcaster draining the given queue.
func NewBroadcaster(queue *Queue, options ...broadcasterOption) *Broadcaster {
	b := &Broadcaster{
		queue:  queue,
		logger: log.Default(),
		sinks:  make(map[string]*Sink),
	}
	for _, option := range options {
		if option != nil {
			option(b)
		}
	}
	return b
}

// Register adds a sink to the registry. It returns ErrSinkRegistered if the
// sink is already present; a sink appears in the registry at most once.
func (b *Broadcaster) Register(s *Sink) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.sinks[s.ID()]; ok {
		return ErrSinkRegistered
	}
	b.sinks[s.ID()] = s
	return nil
}

// SinkCount reports the number of currently registered sinks.
func (b *Broadcaster) SinkCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sinks)
}

// Run drains the inbound queue one message at a time until the queue is
// closed and empty. It is the process-long broadcast loop; the queue closing
// is the orderly shutdown signal, not an error.
func (b *Broadcaster) Run() {
	b.logger.Printf("chat: broadcaster started")
	for {
		m, ok := b.queue.Pop()
		if !ok {
			b.logger.Printf("chat: inbound queue closed, broadcaster exiting")
			return
		}
		b.fanOut(m)
	}
}

// fanOut writes one message to every registered sink, holding the registry
// lock for the whole pass. A failed write is the sole disconnect signal for
// a registered client: the sink is dropped immediately and takes no part in
// later passes. With zero sinks the pass is a no-op.
func (b *Broadcaster) fanOut(m Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, s := range b.sinks {
		if err := s.deliver(m); err != nil {
			delete(b.sinks, id)
			b.logger.Printf("chat: dropping sink %s (%s): %v", id, s.Label(), err)
		}
	}
}
