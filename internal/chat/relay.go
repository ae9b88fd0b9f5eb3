package chat

import (
	"fmt"
	"io"
	"log"
	"net"
	"time"
)

// namePrompt is written to a client right after it connects, before its sink
// joins the registry. At that point nothing else holds the write side, so
// the broadcaster's exclusive custody is not violated.
const namePrompt = "Enter your display name\n"

// Relay glues the transports to the chat core: it admits client streams,
// hands their write side to the broadcaster, and runs a handler per stream.
type Relay struct {
	queue        *Queue
	broadcaster  *Broadcaster
	logger       *log.Logger
	writeTimeout time.Duration
}

type relayOption func(*Relay)

// WithWriteTimeout arms a deadline on every fan-out write for sinks that
// support one, so a wedged peer shows up as a failed write. Zero keeps
// writes deadline-free.
func WithWriteTimeout(d time.Duration) relayOption {
	return func(r *Relay) {
		if d > 0 {
			r.writeTimeout = d
		}
	}
}

// NewRelay wires a relay over the given queue and broadcaster.
func NewRelay(queue *Queue, broadcaster *Broadcaster, logger *log.Logger, options ...relayOption) *Relay {
	if logger == nil {
		logger = log.Default()
	}
	r := &Relay{
		queue:       queue,
		broadcaster: broadcaster,
		logger:      logger,
	}
	for _, option := range options {
		if option != nil {
			option(r)
		}
	}
	return r
}

// Run drives the broadcast loop. It returns when Shutdown has been called
// and the queue has drained.
func (r *Relay) Run() {
	r.broadcaster.Run()
}

// Shutdown closes the inbound queue; the broadcast loop exits after
// delivering what is already queued.
func (r *Relay) Shutdown() {
	r.queue.Close()
}

// HandleConn admits one TCP connection. It is called synchronously from the
// accept loop: registration completes before the listener moves on to the
// next accept.
func (r *Relay) HandleConn(conn net.Conn) {
	remote := conn.RemoteAddr().String()
	r.logger.Printf("chat: connection from %s", remote)
	if err := r.Join(conn, remote); err != nil {
		r.logger.Printf("chat: admitting %s failed: %v", remote, err)
		_ = conn.Close()
	}
}

// Join admits any bidirectional stream: it prompts for a name, transfers the
// write side to the broadcaster as a fresh sink, and starts the read-side
// handler in its own goroutine. The stream is closed when the handler
// exits, which makes the next fan-out write fail and lazily prunes the sink.
func (r *Relay) Join(stream io.ReadWriter, remote string) error {
	if _, err := io.WriteString(stream, namePrompt); err != nil {
		return fmt.Errorf("chat: prompt %s: %w", remote, err)
	}

	sink := NewSink(stream, remote, r.writeTimeout)
	if err := r.broadcaster.Register(sink); err != nil {
		return err
	}

	handler := NewHandler(stream, remote, r.queue)
	go func() {
		err := handler.Run()
		switch {
		case err != nil:
			r.logger.Printf("chat: handler for %s stopped: %v", remote, err)
		case handler.Name() != "":
			r.logger.Printf("chat: %s (%s) disconnected", handler.Name(), remote)
		default:
			r.logger.Printf("chat: %s disconnected before naming itself", remote)
		}
		if c, ok := stream.(io.Closer); ok {
			_ = c.Close()
		}
	}()

	return nil
}
