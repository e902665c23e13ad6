package domain

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type SessionState int

const (
	// SessionActive relays messages both ways.
	SessionActive SessionState = iota
	// SessionEnding stops relaying while departure notices go out.
	SessionEnding
	// SessionClosed is terminal.
	SessionClosed
)

func (s SessionState) String() string {
	switch s {
	case SessionActive:
		return "ACTIVE"
	case SessionEnding:
		return "ENDING"
	case SessionClosed:
		return "CLOSED"
	}
	return "UNKNOWN"
}

// Session binds exactly two handles for the lifetime of one conversation.
// Both handles relay through it concurrently, so state and transcript are
// guarded by the session's own lock.
type Session struct {
	ID        uuid.UUID
	First     *Handle
	Second    *Handle
	StartedAt time.Time

	mu       sync.Mutex
	state    SessionState
	messages []Message
}

func NewSession(first, second *Handle) *Session {
	return &Session{
		ID:        uuid.New(),
		First:     first,
		Second:    second,
		StartedAt: time.Now(),
		state:     SessionActive,
	}
}

// Peer returns the other side of the session, or nil for a stranger handle.
func (s *Session) Peer(h *Handle) *Handle {
	switch h {
	case s.First:
		return s.Second
	case s.Second:
		return s.First
	}
	return nil
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Append records a relayed message. Returns false once the session left the
// active state, so late writers know the line was not part of the chat.
func (s *Session) Append(m Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionActive {
		return false
	}
	s.messages = append(s.messages, m)
	return true
}

// BeginEnding moves the session from active to ending exactly once.
// The first caller gets true and owns the departure notification.
func (s *Session) BeginEnding() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != SessionActive {
		return false
	}
	s.state = SessionEnding
	return true
}

// Close moves the session to its terminal state.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = SessionClosed
}

// Messages returns a copy of the transcript in arrival order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}
