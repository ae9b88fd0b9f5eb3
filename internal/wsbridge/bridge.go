// Package wsbridge adapts WebSocket clients to the relay's newline-delimited
// stream contract: one inbound text frame is one line, one outbound line is
// one text frame.
package wsbridge

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
)

// JoinFunc admits a bidirectional stream into the chat. It matches
// chat.Relay.Join.
type JoinFunc func(stream io.ReadWriter, remote string) error

// Bridge serves a single /ws endpoint and feeds upgraded connections into
// the chat through join.
type Bridge struct {
	addr   string
	join   JoinFunc
	logger *log.Logger

	upgrader websocket.Upgrader
}

// New creates a Bridge listening on addr. The origin check is permissive;
// the chat has no authentication to protect in the first place.
func New(addr string, join JoinFunc, logger *log.Logger) *Bridge {
	if logger == nil {
		logger = log.Default()
	}
	return &Bridge{
		addr:   addr,
		join:   join,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ListenAndServe serves the /ws endpoint until the context is cancelled or
// the bind fails.
func (b *Bridge) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", b.handleUpgrade)

	server := &http.Server{Addr: b.addr, Handler: mux}

	shutdown := make(chan struct{})
	defer close(shutdown)

	go func() {
		select {
		case <-ctx.Done():
			_ = server.Close()
		case <-shutdown:
		}
	}()

	b.logger.Printf("wsbridge: listening on %s", b.addr)

	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (b *Bridge) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Printf("wsbridge: upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}

	remote := "ws:" + conn.RemoteAddr().String()
	b.logger.Printf("wsbridge: connection from %s", remote)

	stream := &streamConn{ws: conn}
	if err := b.join(stream, remote); err != nil {
		b.logger.Printf("wsbridge: admitting %s failed: %v", remote, err)
		_ = conn.Close()
	}
}

// streamConn presents a WebSocket connection as a plain byte stream. Frames
// gain a trailing newline on the way in and lose it on the way out, so the
// line-oriented core never knows it is talking to a WebSocket.
type streamConn struct {
	ws   *websocket.Conn
	rbuf []byte
}

func (c *streamConn) Read(p []byte) (int, error) {
	for len(c.rbuf) == 0 {
		kind, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived) {
				return 0, io.EOF
			}
			return 0, err
		}
		if kind != websocket.TextMessage {
			continue
		}
		if n := len(data); n == 0 || data[n-1] != '\n' {
			data = append(data, '\n')
		}
		c.rbuf = data
	}

	n := copy(p, c.rbuf)
	c.rbuf = c.rbuf[n:]
	return n, nil
}

func (c *streamConn) Write(p []byte) (int, error) {
	line := p
	if n := len(line); n > 0 && line[n-1] == '\n' {
		line = line[:n-1]
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, line); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *streamConn) Close() error {
	return c.ws.Close()
}
