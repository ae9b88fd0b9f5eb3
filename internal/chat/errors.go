package chat

import "errors"

var (
	// ErrQueueClosed is returned by Queue.Push after Close. Handlers treat it
	// as the broadcaster being gone, which leaves no way to make progress.
	ErrQueueClosed = errors.New("chat: inbound queue closed")

	// ErrQueueFull is returned by Queue.Push when a bounded queue with the
	// drop policy sheds the incoming message.
	ErrQueueFull = errors.New("chat: inbound queue full, message dropped")

	// ErrSinkRegistered is returned when a sink is registered twice.
	ErrSinkRegistered = errors.New("chat: sink already registered")
)
