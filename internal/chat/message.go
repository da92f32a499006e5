package chat

import (
	"time"

	"github.com/Zachkp/resume-site/internal/reply"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderBot   Sender = "bot"
	SenderError Sender = "error"
)

// Message is one entry in a widget's conversation. It is never mutated after creation.
type Message struct {
	ID          int64                  `json:"id"`
	Text        string                 `json:"text"`
	Sender      Sender                 `json:"sender"`
	Timestamp   time.Time              `json:"timestamp"`
	Attachments []reply.FileAttachment `json:"attachments,omitempty"`
}

// FromUser reports whether the visitor wrote the message.
func (m Message) FromUser() bool { return m.Sender == SenderUser }
