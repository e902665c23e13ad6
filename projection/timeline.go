// Package projection builds local views from observed events.
// Handles ordering and retention of moderated lines.
// Does not emit events or interact with transports directly.
package projection

import (
	"sync"

	"blindchat/domain"
	"blindchat/domain/event"
)

// Timeline keeps the most recent moderated lines in arrival order. The event
// pipeline writes, the debug inspector reads, so access is guarded.
type Timeline struct {
	mu       sync.RWMutex
	capacity int
	messages []domain.Message
}

func NewTimeline(capacity int) *Timeline {
	if capacity < 1 {
		capacity = 1
	}
	return &Timeline{capacity: capacity}
}

func (t *Timeline) Consume(e event.DomainEvent) {
	switch evt := e.(type) {
	case event.SanitizedMessage:
		t.append(domain.Message{
			SenderName: evt.Sender,
			Content:    evt.Content,
			CreatedAt:  evt.At,
		})
	}
}

func (t *Timeline) append(m domain.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, m)
	if len(t.messages) > t.capacity {
		copy(t.messages, t.messages[1:])
		t.messages = t.messages[:t.capacity]
	}
}

// Messages returns a copy of the retained lines, oldest first.
func (t *Timeline) Messages() []domain.Message {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.Message, len(t.messages))
	copy(out, t.messages)
	return out
}
