package chat

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Handler reads one client's newline-delimited input and submits chat events
// to the inbound queue. The first line names the client; every later line is
// relayed as chat. The handler never writes to the client itself; outbound
// traffic belongs to the broadcaster.
type Handler struct {
	queue  *Queue
	r      io.Reader
	remote string

	name  string
	named bool
}

// NewHandler binds a handler to the read side of one client stream. remote
// identifies the peer for log and error messages.
func NewHandler(r io.Reader, remote string, queue *Queue) *Handler {
	return &Handler{
		queue:  queue,
		r:      r,
		remote: remote,
	}
}

// Name returns the display name, or "" before the client has sent one.
func (h *Handler) Name() string {
	return h.name
}

// Run loops until end-of-stream. A clean EOF returns nil; a read error is
// returned for the caller to log and is scoped to this connection only. A
// push failing with ErrQueueClosed means the broadcaster is gone and is
// surfaced as an error rather than swallowed.
func (h *Handler) Run() error {
	reader := bufio.NewReader(h.r)

	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			if perr := h.submit(line); perr != nil {
				return perr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("chat: read from %s: %w", h.remote, err)
		}
	}
}

// submit advances the two-state machine: the first line becomes the display
// name and is announced, every later line is relayed with the name prefix.
func (h *Handler) submit(line string) error {
	var m Message
	if !h.named {
		h.name = strings.TrimSpace(line)
		h.named = true
		m = Announcement(h.name)
	} else {
		m = ChatLine(h.name, line)
	}

	err := h.queue.Push(m)
	switch {
	case errors.Is(err, ErrQueueFull):
		// Shed under the bounded-queue drop policy; the connection stays up.
		return nil
	case err != nil:
		return fmt.Errorf("chat: relay from %s: %w", h.remote, err)
	}
	return nil
}
