package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"blindchat/contract"
	"blindchat/domain"
	"blindchat/domain/event"
	"blindchat/domain/wire"
	"blindchat/errors"
)

// Historian builds the archived conversation reply for one display name.
type Historian interface {
	HistoryFor(name string) (string, error)
}

const historyUnavailableReply = "Chat history is unavailable."

var _ contract.Worker = (*ConnectionWorker)(nil)

// ConnectionWorker drives one client from announce to departure. It owns
// the receive side of the channel: the first frame must announce a
// username, then the loop dispatches commands and relays chat lines until
// the client leaves or the transport dies.
//
// One worker per client is spawned at attach time and never restarts into
// a live session: any exit path runs cleanup first and returns nil.
type ConnectionWorker struct {
	log        *slog.Logger
	conn       wire.Conn
	registry   contract.IRegistry
	matchmaker contract.IMatchmaker
	historian  Historian
	validate   func(name string) error
	events     chan<- event.DomainEvent
}

func NewConnectionWorker(
	log *slog.Logger,
	conn wire.Conn,
	registry contract.IRegistry,
	matchmaker contract.IMatchmaker,
	historian Historian,
	validate func(name string) error,
	events chan<- event.DomainEvent) *ConnectionWorker {
	return &ConnectionWorker{
		log:        log,
		conn:       conn,
		registry:   registry,
		matchmaker: matchmaker,
		historian:  historian,
		validate:   validate,
		events:     events,
	}
}

func (w *ConnectionWorker) Run(ctx context.Context) error {
	// Receive is not context aware, closing the channel is what unblocks
	// it when the engine shuts down.
	stop := context.AfterFunc(ctx, func() {
		_ = w.conn.Close()
	})
	defer stop()

	handle, err := w.register()
	if err != nil {
		w.log.Info("registration refused", "error", err)
		_ = w.conn.Close()
		return nil
	}

	w.log.Info("user registered", "handle", handle.ID, "name", handle.Name)
	w.emit(event.UserRegistered{ID: handle.ID, Username: handle.Name, At: time.Now()})

	cause := w.serve(handle)

	w.matchmaker.Cleanup(handle, cause)
	w.registry.Unregister(handle)
	w.emit(event.UserDeparted{ID: handle.ID, Username: handle.Name, Cause: cause, At: time.Now()})
	w.log.Info("user departed", "handle", handle.ID, "name", handle.Name, "cause", cause.String())
	return nil
}

// register performs the announce handshake: exactly one username frame,
// validated, acknowledged with a connected frame, then straight into the
// waiting queue.
func (w *ConnectionWorker) register() (*domain.Handle, error) {
	frame, err := w.conn.Receive()
	if err != nil {
		return nil, err
	}
	if frame.Kind != wire.Username {
		_ = w.conn.Send(wire.Frame{Kind: wire.InvalidUsername})
		return nil, fmt.Errorf("%w: expected a username announce, got %s", errors.ErrProtocol, frame.Kind)
	}
	if err := w.validate(frame.Body); err != nil {
		_ = w.conn.Send(wire.Frame{Kind: wire.InvalidUsername})
		return nil, fmt.Errorf("%w: %s", errors.ErrProtocol, err)
	}

	handle := domain.NewHandle(frame.Body, w.conn)
	w.registry.Register(handle)

	if err := w.conn.Send(wire.Frame{Kind: wire.Connected}); err != nil {
		w.registry.Unregister(handle)
		return nil, err
	}
	if err := w.matchmaker.Enqueue(handle); err != nil {
		w.registry.Unregister(handle)
		return nil, err
	}
	return handle, nil
}

// serve runs the receive loop until departure and reports its cause.
func (w *ConnectionWorker) serve(handle *domain.Handle) domain.DepartureCause {
	for {
		frame, err := w.conn.Receive()
		if err != nil {
			w.log.Debug("receive failed, treating as disconnect",
				"handle", handle.ID, "error", err)
			return domain.Dropped
		}

		switch frame.Kind {
		case wire.Disconnected:
			return domain.Left

		case wire.Help:
			if err := w.conn.Send(wire.Frame{Kind: wire.Help}); err != nil {
				return domain.Dropped
			}

		case wire.History:
			if err := w.conn.Send(wire.TextFrame(w.history(handle.Name))); err != nil {
				return domain.Dropped
			}

		default:
			// Anything else, unknown tokens included, is a chat line.
			w.relay(handle, wire.Encode(frame))
		}
	}
}

func (w *ConnectionWorker) history(name string) string {
	reply, err := w.historian.HistoryFor(name)
	if err != nil {
		w.log.Warn("history lookup failed", "name", name, "error", err)
		return historyUnavailableReply
	}
	return reply
}

// relay forwards one chat line to the partner, verbatim. Lines sent while
// unpaired are dropped, the waiting notices already tell the client there
// is nobody on the other side.
func (w *ConnectionWorker) relay(handle *domain.Handle, line string) {
	sess := w.matchmaker.SessionFor(handle)
	if sess == nil {
		w.log.Debug("no active chat, dropping line", "handle", handle.ID)
		return
	}
	if !sess.Append(domain.NewMessage(handle.Name, line)) {
		return
	}

	partner := sess.Peer(handle)
	if err := partner.Conn.Send(wire.TextFrame(line)); err != nil {
		w.log.Debug("partner unreachable, cleaning them up",
			"handle", partner.ID, "error", err)
		w.matchmaker.Cleanup(partner, domain.Dropped)
		return
	}

	w.emit(event.MessageRelayed{
		SessionID: sess.ID,
		Sender:    handle.Name,
		Content:   line,
		At:        time.Now(),
	})
}

func (w *ConnectionWorker) emit(e event.DomainEvent) {
	select {
	case w.events <- e:
	default:
		w.log.Warn("event channel full, dropping event", "event", e.Name())
	}
}
