package workers

import (
	"context"
	"log/slog"

	"blindchat/contract"
	"blindchat/domain"
	"blindchat/domain/wire"
)

var _ contract.Worker = (*PairingWorker)(nil)

// PairingWorker drains the waiting queue into sessions. It sleeps until
// the matchmaker signals a new arrival, then pairs until fewer than two
// handles wait. No polling.
type PairingWorker struct {
	log        *slog.Logger
	matchmaker contract.IMatchmaker
	wake       <-chan struct{}
}

func NewPairingWorker(log *slog.Logger, matchmaker contract.IMatchmaker, wake <-chan struct{}) *PairingWorker {
	return &PairingWorker{log: log, matchmaker: matchmaker, wake: wake}
}

func (w *PairingWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case <-w.wake:
			w.drain()
		}
	}
}

func (w *PairingWorker) drain() {
	for {
		sess, err := w.matchmaker.TryPair()
		if err != nil {
			w.log.Error("pairing failed, queue healed", "error", err)
			continue
		}
		if sess == nil {
			return
		}

		w.log.Info("chat started",
			"session_id", sess.ID, "user1", sess.First.Name, "user2", sess.Second.Name)

		var failed []*domain.Handle
		for _, h := range []*domain.Handle{sess.First, sess.Second} {
			if err := h.Conn.Send(wire.Frame{Kind: wire.ChatFound}); err != nil {
				w.log.Debug("paired handle unreachable", "handle", h.ID, "error", err)
				failed = append(failed, h)
			}
		}
		for _, h := range failed {
			w.matchmaker.Cleanup(h, domain.Dropped)
		}
	}
}
