package event

// Handler Each kind of event has its own handler
// Based on the Chain of responsibility pattern
type Handler interface {
	Handle(event Event)
}
