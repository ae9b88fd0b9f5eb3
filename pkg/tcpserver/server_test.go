package tcpserver

import (
	"context"
	"io"
	"log"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestServeHandsConnectionsToHandler(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	accepted := make(chan net.Conn, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	srv := New(ln.Addr().String(), quietLogger())
	go func() {
		done <- srv.Serve(ctx, ln, func(conn net.Conn) {
			accepted <- conn
		})
	}()

	client, err := net.DialTimeout("tcp", ln.Addr().String(), time.Second)
	require.NoError(t, err)
	defer client.Close()

	select {
	case conn := <-accepted:
		require.Equal(t, client.LocalAddr().String(), conn.RemoteAddr().String())
		conn.Close()
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for the handler")
	}

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Serve to stop")
	}
}

func TestListenAndServeRequiresHandler(t *testing.T) {
	srv := New("127.0.0.1:0", quietLogger())
	require.Error(t, srv.ListenAndServe(context.Background(), nil))
}

func TestListenAndServeReportsBindFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	// Same address again cannot bind.
	srv := New(ln.Addr().String(), quietLogger())
	err = srv.ListenAndServe(context.Background(), func(net.Conn) {})
	require.Error(t, err)
	require.Contains(t, err.Error(), "listen")
}
