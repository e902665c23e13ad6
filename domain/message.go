package domain

import (
	"time"
)

// Message is one transcript line, kept in arrival order. Messages are
// immutable once appended to a session transcript.
type Message struct {
	SenderName string
	Content    string
	CreatedAt  time.Time
}

func NewMessage(senderName, content string) Message {
	return Message{
		SenderName: senderName,
		Content:    content,
		CreatedAt:  time.Now(),
	}
}
