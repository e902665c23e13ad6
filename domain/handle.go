// Package domain contains core concepts of the pairing engine.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"blindchat/domain/wire"

	"github.com/google/uuid"
)

// Handle is one connected user: an opaque identity, the display name captured
// at registration (immutable afterwards), and the connection channel the
// handle exclusively owns.
type Handle struct {
	ID   uuid.UUID
	Name string
	Conn wire.Conn

	cleaned bool
}

func NewHandle(name string, conn wire.Conn) *Handle {
	return &Handle{ID: uuid.New(), Name: name, Conn: conn}
}

// Cleaned reports whether the handle has already been removed from the
// engine. Reads and writes are serialized through the matchmaker lock.
func (h *Handle) Cleaned() bool {
	return h.cleaned
}

// MarkCleaned flags the handle as removed so a second cleanup pass becomes a
// no-op. Must only be called while holding the matchmaker lock.
func (h *Handle) MarkCleaned() {
	h.cleaned = true
}
