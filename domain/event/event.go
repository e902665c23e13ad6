package event

import (
	"time"

	"blindchat/domain"

	"github.com/google/uuid"
)

type DomainEvent interface {
	Name() string
	OccurredAt() time.Time
}

// UserRegistered fires once a username announce passed validation.
type UserRegistered struct {
	ID       uuid.UUID
	Username string
	At       time.Time
}

func (e UserRegistered) Name() string          { return "UserRegistered" }
func (e UserRegistered) OccurredAt() time.Time { return e.At }

// UserDeparted fires when a handle leaves the engine, whatever the cause.
type UserDeparted struct {
	ID       uuid.UUID
	Username string
	Cause    domain.DepartureCause
	At       time.Time
}

func (e UserDeparted) Name() string          { return "UserDeparted" }
func (e UserDeparted) OccurredAt() time.Time { return e.At }

// PairFormed fires when the matchmaker binds two waiting handles.
type PairFormed struct {
	SessionID uuid.UUID
	User1     string
	User2     string
	At        time.Time
}

func (e PairFormed) Name() string          { return "PairFormed" }
func (e PairFormed) OccurredAt() time.Time { return e.At }

// MessageRelayed carries the raw chat line exactly as forwarded between
// partners. Moderation happens downstream, never on the relayed copy.
type MessageRelayed struct {
	SessionID uuid.UUID
	Sender    string
	Content   string
	At        time.Time
}

func (e MessageRelayed) Name() string          { return "MessageRelayed" }
func (e MessageRelayed) OccurredAt() time.Time { return e.At }

// SanitizedMessage is the censored copy of a relayed line.
type SanitizedMessage struct {
	SessionID     uuid.UUID
	Sender        string
	Content       string
	CensoredWords []string
	At            time.Time
}

func (e SanitizedMessage) Name() string          { return "SanitizedMessage" }
func (e SanitizedMessage) OccurredAt() time.Time { return e.At }

// SessionEnded carries the raw transcript of a finished conversation.
type SessionEnded struct {
	SessionID uuid.UUID
	User1     string
	User2     string
	Cause     domain.DepartureCause
	StartedAt time.Time
	At        time.Time
	Messages  []domain.Message
}

func (e SessionEnded) Name() string          { return "SessionEnded" }
func (e SessionEnded) OccurredAt() time.Time { return e.At }

// SessionArchived is the censored, language-tagged record ready for
// persistence and lookup.
type SessionArchived struct {
	SessionID uuid.UUID
	User1     string
	User2     string
	Lang      string
	StartedAt time.Time
	At        time.Time
	Messages  []domain.Message
}

func (e SessionArchived) Name() string          { return "SessionArchived" }
func (e SessionArchived) OccurredAt() time.Time { return e.At }
