package bench

import "strings"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem     Role = "system"
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleSystemNote Role = "system_note"
)

// Message is a single entry in a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the append-only record of one interaction run.
type Conversation struct {
	Messages []Message `json:"messages"`
}

// Append adds a message to the end of the conversation.
func (c *Conversation) Append(role Role, content string) {
	c.Messages = append(c.Messages, Message{Role: role, Content: content})
}

// Len returns the number of recorded messages.
func (c Conversation) Len() int {
	return len(c.Messages)
}

// Clone returns a copy that does not share the message slice.
func (c Conversation) Clone() Conversation {
	if c.Messages == nil {
		return Conversation{}
	}
	return Conversation{Messages: append([]Message(nil), c.Messages...)}
}

// Transcript renders the conversation as "ROLE: content" blocks separated by a blank line.
func (c Conversation) Transcript() string {
	blocks := make([]string, 0, len(c.Messages))
	for _, msg := range c.Messages {
		blocks = append(blocks, strings.ToUpper(string(msg.Role))+": "+msg.Content)
	}
	return strings.Join(blocks, "\n\n")
}
