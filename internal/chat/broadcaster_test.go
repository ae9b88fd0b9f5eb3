package chat

import (
	"bytes"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"
)

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// brokenWriter fails every write and counts the attempts.
type brokenWriter struct {
	attempts int
}

func (w *brokenWriter) Write(p []byte) (int, error) {
	w.attempts++
	return 0, errors.New("peer is gone")
}

func TestBroadcasterFansOutToAllSinks(t *testing.T) {
	q := NewQueue()
	b := NewBroadcaster(q, WithLogger(quietLogger()))

	first := &bytes.Buffer{}
	second := &bytes.Buffer{}
	require.NoError(t, b.Register(NewSink(first, "first", 0)))
	require.NoError(t, b.Register(NewSink(second, "second", 0)))

	require.NoError(t, q.Push(Announcement("alice")))
	require.NoError(t, q.Push(ChatLine("alice", "hello\n")))
	q.Close()

	b.Run()

	want := "alice has entered the chat\nalice: hello\n"
	require.Equal(t, want, first.String())
	require.Equal(t, want, second.String())
}

func TestBroadcasterPrunesFailedSinkOnce(t *testing.T) {
	q := NewQueue()
	b := NewBroadcaster(q, WithLogger(quietLogger()))

	healthy := &bytes.Buffer{}
	broken := &brokenWriter{}
	require.NoError(t, b.Register(NewSink(healthy, "healthy", 0)))
	require.NoError(t, b.Register(NewSink(broken, "broken", 0)))
	require.Equal(t, 2, b.SinkCount())

	require.NoError(t, q.Push(ChatLine("alice", "one\n")))
	require.NoError(t, q.Push(ChatLine("alice", "two\n")))
	q.Close()

	b.Run()

	require.Equal(t, 1, b.SinkCount())
	require.Equal(t, 1, broken.attempts, "a dead sink is written to exactly once")
	require.Equal(t, "alice: one\nalice: two\n", healthy.String())
}

func TestBroadcasterEmptyRegistryIsNoOp(t *testing.T) {
	q := NewQueue()
	b := NewBroadcaster(q, WithLogger(quietLogger()))

	require.NoError(t, q.Push(ChatLine("alice", "into the void\n")))
	q.Close()

	b.Run()

	require.Equal(t, 0, b.SinkCount())
}

func TestBroadcasterRejectsDuplicateSink(t *testing.T) {
	q := NewQueue()
	b := NewBroadcaster(q, WithLogger(quietLogger()))

	sink := NewSink(&bytes.Buffer{}, "peer", 0)
	require.NoError(t, b.Register(sink))
	require.ErrorIs(t, b.Register(sink), ErrSinkRegistered)
	require.Equal(t, 1, b.SinkCount())
}

func TestBroadcasterLateRegistrationMissesEarlierMessages(t *testing.T) {
	q := NewQueue()
	b := NewBroadcaster(q, WithLogger(quietLogger()))

	early := &bytes.Buffer{}
	require.NoError(t, b.Register(NewSink(early, "early", 0)))

	require.NoError(t, q.Push(ChatLine("alice", "before\n")))
	q.Close()
	b.Run()

	late := &bytes.Buffer{}
	require.NoError(t, b.Register(NewSink(late, "late", 0)))

	require.Equal(t, "alice: before\n", early.String())
	require.Empty(t, late.String(), "a sink never sees messages broadcast before its registration")
}
