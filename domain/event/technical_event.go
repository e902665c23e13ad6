package event

import (
	"time"

	"blindchat/domain"
)

type Type string

const (
	DomainType              Type = "DOMAIN"
	RestartedAfterPanicType Type = "WORKER_RESTARTED_AFTER_PANIC"
	ChannelCapacityType     Type = "CHANNEL_CAPACITY"
	PIDTrackerType          Type = "PID_TRACKER"
	CensorshipHit           Type = "CENSORSHIP_HIT"
	MessageRelayedType      Type = "MESSAGE_RELAYED"
)

// Event is the telemetry envelope dispatched to handlers. Payload carries
// one of the typed structs below, or a domain event for domain types.
type Event struct {
	Type      Type
	CreatedAt time.Time
	Payload   any
}

func New(t Type, payload any) Event {
	return Event{Type: t, CreatedAt: time.Now(), Payload: payload}
}

type WorkerRestartedAfterPanic struct {
	WorkerName string
}

type ChannelCapacity struct {
	ChannelName string
	Capacity    int
	Length      int
}

type Censored struct {
	Word string
}

type ProcessTracker struct {
	PID        domain.PID
	Status     domain.PidStatus
	Cpu        float64
	Ram        uint64
	Goroutines int
	Waiting    int
	Paired     int
}
