package tcpserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
)

// ConnHandler takes ownership of one accepted connection. It runs on the
// accept goroutine, so whatever it does — registering the client, spawning
// per-connection workers — completes before the next accept. A handler that
// blocks stalls acceptance of new clients.
type ConnHandler func(conn net.Conn)

// Server wraps the TCP listener lifecycle.
type Server struct {
	Addr string

	logger *log.Logger
}

// New creates a Server for the given listen address.
func New(addr string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		Addr:   addr,
		logger: logger,
	}
}

// ListenAndServe binds the listen address and accepts connections until the
// context is cancelled. A bind failure is returned immediately; it is the
// caller's startup-fatal condition. Accept errors are logged and the loop
// continues, so one bad accept never takes the server down.
func (s *Server) ListenAndServe(ctx context.Context, handler ConnHandler) error {
	if handler == nil {
		return errors.New("tcpserver: connection handler required")
	}

	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("tcpserver: listen %q: %w", s.Addr, err)
	}
	return s.Serve(ctx, listener, handler)
}

// Serve accepts connections from an existing listener. It closes the
// listener when the context is cancelled and returns ctx.Err().
func (s *Server) Serve(ctx context.Context, listener net.Listener, handler ConnHandler) error {
	defer listener.Close()

	shutdown := make(chan struct{})
	defer close(shutdown)

	go func() {
		select {
		case <-ctx.Done():
			if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				s.logger.Printf("tcpserver: listener close error: %v", err)
			}
		case <-shutdown:
		}
	}()

	s.logger.Printf("tcpserver: listening on %s", listener.Addr())

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			s.logger.Printf("tcpserver: accept error: %v", err)
			continue
		}

		handler(conn)
	}
}
