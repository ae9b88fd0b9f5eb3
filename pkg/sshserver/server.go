package sshserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"

	"golang.org/x/crypto/ssh"
)

// StreamHandler takes ownership of one accepted SSH session stream. The
// server has already dealt with the handshake and channel requests; the
// handler sees a plain bidirectional byte stream. remote identifies the
// peer for logging.
type StreamHandler func(stream io.ReadWriteCloser, remote string)

// Server wraps the SSH listener lifecycle. Clients are not authenticated;
// the SSH username is only a convenience identity.
type Server struct {
	Addr   string
	Config *ssh.ServerConfig

	logger *log.Logger
}

// New creates a Server with the provided host signer.
func New(addr string, signer ssh.Signer, logger *log.Logger) *Server {
	cfg := &ssh.ServerConfig{
		NoClientAuth: true,
	}
	cfg.AddHostKey(signer)

	if logger == nil {
		logger = log.Default()
	}

	return &Server{
		Addr:   addr,
		Config: cfg,
		logger: logger,
	}
}

// ListenAndServe accepts SSH connections until the context is cancelled or
// the bind fails. Session channels are handed to the handler as plain
// streams; input is expected to arrive line-buffered (ssh -T, or a piped
// stdin), there is no terminal emulation here.
func (s *Server) ListenAndServe(ctx context.Context, handler StreamHandler) error {
	if handler == nil {
		return errors.New("sshserver: stream handler required")
	}

	listener, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return fmt.Errorf("sshserver: listen %q: %w", s.Addr, err)
	}
	return s.Serve(ctx, listener, handler)
}

// Serve accepts SSH connections from an existing listener.
func (s *Server) Serve(ctx context.Context, listener net.Listener, handler StreamHandler) error {
	defer listener.Close()

	shutdown := make(chan struct{})
	defer close(shutdown)

	go func() {
		select {
		case <-ctx.Done():
			if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				s.logger.Printf("sshserver: listener close error: %v", err)
			}
		case <-shutdown:
		}
	}()

	s.logger.Printf("sshserver: listening on %s", listener.Addr())

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			s.logger.Printf("sshserver: accept error: %v", err)
			continue
		}

		go s.handleConn(ctx, conn, handler)
	}
}

func (s *Server) handleConn(ctx context.Context, tcpConn net.Conn, handler StreamHandler) {
	defer tcpConn.Close()

	sshConn, chans, reqs, err := ssh.NewServerConn(tcpConn, s.Config)
	if err != nil {
		s.logger.Printf("sshserver: handshake with %s failed: %v", tcpConn.RemoteAddr(), err)
		return
	}
	defer sshConn.Close()

	remote := fmt.Sprintf("%s@%s", sshConn.User(), sshConn.RemoteAddr())
	s.logger.Printf("sshserver: new connection %s (%s)", remote, sshConn.ClientVersion())

	go ssh.DiscardRequests(reqs)

	for {
		select {
		case <-ctx.Done():
			return
		case newChannel, ok := <-chans:
			if !ok {
				return
			}
			if newChannel.ChannelType() != "session" {
				newChannel.Reject(ssh.UnknownChannelType, "only session channels are supported")
				continue
			}

			channel, requests, err := newChannel.Accept()
			if err != nil {
				s.logger.Printf("sshserver: channel accept failed: %v", err)
				continue
			}

			go serviceRequests(requests)
			handler(channel, remote)
		}
	}
}

// serviceRequests keeps the SSH client happy: shell and terminal requests
// are acknowledged, everything else is refused.
func serviceRequests(requests <-chan *ssh.Request) {
	for req := range requests {
		switch req.Type {
		case "shell", "pty-req", "env", "window-change":
			req.Reply(true, nil)
		default:
			req.Reply(false, nil)
		}
	}
}
