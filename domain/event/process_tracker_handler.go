package event

import (
	"fmt"
	"log/slog"

	"blindchat/errors"
)

type ProcessTrackerHandler struct {
	log *slog.Logger
}

func NewProcessTrackerHandler(log *slog.Logger) *ProcessTrackerHandler {
	return &ProcessTrackerHandler{log: log}
}

func (h ProcessTrackerHandler) Handle(event Event) {
	switch event.Type {
	case PIDTrackerType:
		payload, ok := event.Payload.(ProcessTracker)
		if !ok {
			h.log.Error(errors.ErrInvalidPayload.Error())
			return
		}
		h.log.Debug(fmt.Sprintf(" [ENGINE] PID %d | STATUS %s | CPU %.2f%% | RAM %d | GOROUTINES %d | WAITING %d | PAIRED %d",
			payload.PID, payload.Status, payload.Cpu, payload.Ram, payload.Goroutines, payload.Waiting, payload.Paired))
	}
}
