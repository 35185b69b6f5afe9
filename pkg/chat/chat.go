// Package chat defines the conversation types shared by the relay server
// and its clients. A conversation is in-memory, single-session state: it is
// created on the first submission, appended to on each turn, and never
// persisted.
package chat

import "github.com/google/uuid"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single conversation entry. Assistant content is mutated in
// place while deltas arrive and becomes immutable once the terminal frame
// is received.
type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewMessage creates a message with a fresh ID.
func NewMessage(role, content string) Message {
	return Message{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
	}
}

// WireMessage is the role/content pair sent to the relay. IDs are
// client-side identity only and never cross the wire.
type WireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the relay chat request body.
type Request struct {
	Messages        []WireMessage `json:"messages"`
	EnableWebSearch bool          `json:"enableWebSearch,omitempty"`
}

// Conversation is an ordered message sequence owned by one client session.
type Conversation struct {
	messages []Message
}

// Append adds a message to the end of the conversation.
func (c *Conversation) Append(m Message) {
	c.messages = append(c.messages, m)
}

// Messages returns the conversation in order.
func (c *Conversation) Messages() []Message {
	return c.messages
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Find returns a pointer to the message with the given ID, or nil. The
// pointer is valid until the next Append.
func (c *Conversation) Find(id string) *Message {
	for i := range c.messages {
		if c.messages[i].ID == id {
			return &c.messages[i]
		}
	}
	return nil
}

// Remove deletes the message with the given ID, preserving order.
// Returns false if no such message exists.
func (c *Conversation) Remove(id string) bool {
	for i := range c.messages {
		if c.messages[i].ID == id {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return true
		}
	}
	return false
}

// Wire converts the conversation to wire form, dropping IDs.
func (c *Conversation) Wire() []WireMessage {
	wire := make([]WireMessage, 0, len(c.messages))
	for _, m := range c.messages {
		wire = append(wire, WireMessage{Role: m.Role, Content: m.Content})
	}
	return wire
}
