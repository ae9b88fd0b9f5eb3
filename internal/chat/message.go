package chat

import "fmt"

// Message is a single immutable unit of text to be broadcast verbatim.
// It is created by a connection handler and consumed exactly once by the
// broadcaster; the text already carries its final wire form.
type Message struct {
	text string
}

// Announcement builds the system notice emitted when a client picks its
// display name.
func Announcement(name string) Message {
	return Message{text: fmt.Sprintf("%s has entered the chat\n", name)}
}

// ChatLine builds a regular chat message. The line keeps whatever trailing
// newline it arrived with; a final unterminated line before EOF is relayed
// as-is.
func ChatLine(name, line string) Message {
	return Message{text: fmt.Sprintf("%s: %s", name, line)}
}

// Bytes returns the wire form of the message.
func (m Message) Bytes() []byte {
	return []byte(m.text)
}

func (m Message) String() string {
	return m.text
}
