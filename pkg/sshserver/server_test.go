package sshserver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestServeBridgesSessionStreams(t *testing.T) {
	signer, err := EphemeralSigner()
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := New(ln.Addr().String(), signer, quietLogger())
	go func() {
		_ = srv.Serve(ctx, ln, func(stream io.ReadWriteCloser, remote string) {
			defer stream.Close()
			if _, err := io.WriteString(stream, "welcome\n"); err != nil {
				return
			}
			line, err := bufio.NewReader(stream).ReadString('\n')
			if err != nil {
				return
			}
			fmt.Fprintf(stream, "got: %s", line)
		})
	}()

	clientCfg := &ssh.ClientConfig{
		User:            "tester",
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         2 * time.Second,
	}
	client, err := ssh.Dial("tcp", ln.Addr().String(), clientCfg)
	require.NoError(t, err)
	defer client.Close()

	session, err := client.NewSession()
	require.NoError(t, err)
	defer session.Close()

	stdin, err := session.StdinPipe()
	require.NoError(t, err)
	stdout, err := session.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, session.Shell())

	reader := bufio.NewReader(stdout)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "welcome\n", line)

	_, err = io.WriteString(stdin, "ping\n")
	require.NoError(t, err)

	line, err = reader.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "got: ping\n", line)
}

func TestListenAndServeRequiresHandler(t *testing.T) {
	signer, err := EphemeralSigner()
	require.NoError(t, err)

	srv := New("127.0.0.1:0", signer, quietLogger())
	require.Error(t, srv.ListenAndServe(context.Background(), nil))
}
