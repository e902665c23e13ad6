//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"blindchat/domain"
	"blindchat/domain/event"
	"blindchat/domain/wire"

	"github.com/google/uuid"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IMatchmaker owns the waiting queue and the active pairs under one lock.
type IMatchmaker interface {
	// Enqueue adds a handle to the waiting queue and wakes the pairing
	// worker. Fails with ErrAlreadyQueued on a queued handle, silently
	// ignores a paired one.
	Enqueue(h *domain.Handle) error
	// TryPair pops the two oldest waiting handles into a session, or
	// returns nil when fewer than two are waiting.
	TryPair() (*domain.Session, error)
	// SessionFor returns the active session of a handle, or nil.
	SessionFor(h *domain.Handle) *domain.Session
	// Cleanup removes a handle everywhere it appears, notifies and
	// requeues the partner, and closes the handle's channel. Idempotent.
	Cleanup(h *domain.Handle, cause domain.DepartureCause)
	// Waiting snapshots the queue in arrival order.
	Waiting() []*domain.Handle
	// Stats reports queue length and active pair count.
	Stats() (waiting int, paired int)
}

// IRegistry maps live handle identities to display names.
type IRegistry interface {
	Register(h *domain.Handle)
	Unregister(h *domain.Handle)
	NameOf(id uuid.UUID) (string, bool)
	Count() int
}

type IOrchestrator interface {
	// Attach hands a freshly accepted connection channel to the engine.
	Attach(conn wire.Conn)
	RegisterSinks(sink ...EventSink)
	Start(ctx context.Context) error
	Stop()
}
