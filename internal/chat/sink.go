package chat

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// writeDeadliner is the subset of net.Conn needed to arm a write deadline.
// Streams without deadline support (SSH channels, in-memory buffers) are
// written to without one.
type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// Sink is the write handle for one connected client. Once registered with
// the broadcaster the sink is in its exclusive custody; nothing else writes
// to the underlying stream.
type Sink struct {
	id      string
	label   string
	w       io.Writer
	timeout time.Duration
}

// NewSink wraps a client's writable stream. label is a human-readable peer
// identity (usually the remote address) used only for logging. A zero
// timeout disables write deadlines.
func NewSink(w io.Writer, label string, timeout time.Duration) *Sink {
	return &Sink{
		id:      uuid.NewString(),
		label:   label,
		w:       w,
		timeout: timeout,
	}
}

// ID returns the sink's registry identity.
func (s *Sink) ID() string {
	return s.id
}

// Label returns the peer identity the sink was created with.
func (s *Sink) Label() string {
	return s.label
}

// deliver writes the full message to the underlying stream. Any error,
// including a short write, means the peer is gone as far as the broadcaster
// is concerned.
func (s *Sink) deliver(m Message) error {
	if s.timeout > 0 {
		if d, ok := s.w.(writeDeadliner); ok {
			if err := d.SetWriteDeadline(time.Now().Add(s.timeout)); err != nil {
				return fmt.Errorf("chat: arm write deadline for %s: %w", s.label, err)
			}
		}
	}
	if _, err := s.w.Write(m.Bytes()); err != nil {
		return fmt.Errorf("chat: write to %s: %w", s.label, err)
	}
	return nil
}
