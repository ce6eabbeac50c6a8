// internal/model/chat.go
package model

import "time"

// Conversation is a message thread as reported by the gateway.
type Conversation struct {
	ID        string    `json:"id"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ChatMessage is the latest message of a conversation. FromMe marks messages
// that originated locally and must never trigger automations.
type ChatMessage struct {
	ID        string    `json:"id"`
	FromMe    bool      `json:"from_me"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Sender extracts the recipient identifier from a conversation id of the
// form "<number>@<server>".
func (c *Conversation) Sender() string {
	for i := 0; i < len(c.ID); i++ {
		if c.ID[i] == '@' {
			return c.ID[:i]
		}
	}
	return c.ID
}
