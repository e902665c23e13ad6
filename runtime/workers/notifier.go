package workers

import (
	"context"
	"log/slog"
	"time"

	"blindchat/contract"
	"blindchat/domain"
	"blindchat/domain/wire"
)

var _ contract.Worker = (*WaitingNotifierWorker)(nil)

// WaitingNotifierWorker periodically tells every waiting client that
// nobody showed up yet. The notice doubles as a liveness probe: a failed
// send means the waiting client is gone and gets cleaned up before the
// matchmaker could hand them to a partner.
type WaitingNotifierWorker struct {
	log        *slog.Logger
	matchmaker contract.IMatchmaker
	interval   time.Duration
}

func NewWaitingNotifierWorker(log *slog.Logger, matchmaker contract.IMatchmaker, interval time.Duration) *WaitingNotifierWorker {
	return &WaitingNotifierWorker{log: log, matchmaker: matchmaker, interval: interval}
}

func (w *WaitingNotifierWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case <-ticker.C:
			for _, h := range w.matchmaker.Waiting() {
				if err := h.Conn.Send(wire.Frame{Kind: wire.NoPartnerFound}); err != nil {
					w.log.Debug("waiting client gone", "handle", h.ID, "error", err)
					w.matchmaker.Cleanup(h, domain.Dropped)
				}
			}
		}
	}
}
