package domain

// DepartureCause tells why a handle left. Survivors are notified with a
// different token per cause, exactly once.
type DepartureCause int

const (
	// Left is a voluntary goodbye announced by the client.
	Left DepartureCause = iota
	// Dropped is a transport failure observed by the engine.
	Dropped
)

func (c DepartureCause) String() string {
	if c == Left {
		return "LEFT"
	}
	return "DROPPED"
}
