package workers

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"time"

	"blindchat/contract"
	"blindchat/domain"
	"blindchat/domain/event"

	"github.com/shirou/gopsutil/process"
)

var _ contract.Worker = (*HeartbeatWorker)(nil)

// HeartbeatWorker samples the engine process itself (CPU, RAM, OS status)
// together with the matchmaker load and reports it on the telemetry
// channel.
type HeartbeatWorker struct {
	log           *slog.Logger
	matchmaker    contract.IMatchmaker
	telemetryChan chan event.Event
	interval      time.Duration
}

func NewHeartbeatWorker(log *slog.Logger,
	matchmaker contract.IMatchmaker,
	telemetryChan chan event.Event,
	interval time.Duration) *HeartbeatWorker {
	return &HeartbeatWorker{
		log:           log,
		matchmaker:    matchmaker,
		telemetryChan: telemetryChan,
		interval:      interval,
	}
}

func (w *HeartbeatWorker) Run(ctx context.Context) error {
	w.log.Info("Starting engine heartbeat worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			rss, cpu, status, err := getSelfStats(p)
			if err != nil {
				w.log.Error("Failed to collect self stats", "err", err)
				continue
			}

			waiting, paired := w.matchmaker.Stats()
			evt := event.New(event.PIDTrackerType, event.ProcessTracker{
				PID:        domain.PID(os.Getpid()),
				Status:     domain.ToStatus(status),
				Cpu:        cpu,
				Ram:        rss,
				Goroutines: runtime.NumGoroutine(),
				Waiting:    waiting,
				Paired:     paired,
			})

			select {
			case w.telemetryChan <- evt:
			default:
				w.log.Debug("Observability telemetry event lost")
			}
		}
	}
}

// getSelfStats retrieves technical metrics (Memory, CPU, and OS Status) for the given process.
func getSelfStats(p *process.Process) (uint64, float64, string, error) {
	memInfo, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, "", err
	}

	cpuPercent, err := p.CPUPercent()
	if err != nil {
		return 0, 0, "", err
	}

	status, err := p.Status()
	if err != nil {
		return 0, 0, "", err
	}
	return memInfo.RSS, cpuPercent, status, nil
}
