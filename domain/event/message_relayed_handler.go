package event

import (
	"log/slog"
	"sync"

	"blindchat/errors"
)

// MessageRelayedHandler handles events when a chat line is forwarded.
// It is triggered each time one partner relays a message to the other.
// Useful for updating observability metrics, logging, or telemetry.
type MessageRelayedHandler struct {
	log     *slog.Logger
	mu      sync.Mutex
	counter *Counter
}

func NewMessageRelayedHandler(log *slog.Logger, counter *Counter) *MessageRelayedHandler {
	return &MessageRelayedHandler{log: log, counter: counter}
}

func (p *MessageRelayedHandler) Handle(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch event.Type {
	case MessageRelayedType:
		switch event.Payload.(type) {
		case MessageRelayed, SanitizedMessage:
		default:
			p.log.Error(errors.ErrInvalidPayload.Error())
		}
		p.counter.Increment(MessageRelayedType)
	}
}
