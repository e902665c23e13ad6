// Package runtime handles pairing, relaying, moderation and event propagation.
// It orchestrates the system without containing business logic or domain rules.
package runtime

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"blindchat/contract"
	"blindchat/domain/event"
	"blindchat/domain/wire"
	"blindchat/moderation"
	"blindchat/projection"
	"blindchat/repositories"
	"blindchat/runtime/workers"
	"blindchat/sink"
)

//go:embed censored/*
var censoredFolder embed.FS

var _ contract.IOrchestrator = (*Orchestrator)(nil)
var _ workers.Historian = (*Orchestrator)(nil)

// PipelineConfig groups the tunables of the event pipeline and its workers.
type PipelineConfig struct {
	BufferSize       int
	SinkTimeout      time.Duration
	NotifyInterval   time.Duration
	MetricInterval   time.Duration
	TimelineCapacity int
	CharReplacement  rune
}

type Orchestrator struct {
	mu              sync.Mutex
	log             *slog.Logger
	supervisor      contract.ISupervisor
	registry        contract.IRegistry
	matchmaker      *Matchmaker
	sessions        repositories.ISessionRepository
	timeline        *projection.Timeline
	permanentSinks  []contract.EventSink
	rawEvents       chan event.DomainEvent
	domainEvents    chan event.DomainEvent
	telemetryEvents chan event.Event
	handlers        []event.Handler
	cfg             PipelineConfig
	runCtx          context.Context
	runCancel       context.CancelFunc
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry contract.IRegistry, sessions repositories.ISessionRepository,
	telemetryEvents chan event.Event, handlers []event.Handler,
	cfg PipelineConfig) *Orchestrator {
	o := &Orchestrator{
		log:             log,
		supervisor:      supervisor,
		registry:        registry,
		matchmaker:      NewMatchmaker(log),
		sessions:        sessions,
		timeline:        projection.NewTimeline(cfg.TimelineCapacity),
		permanentSinks:  nil,
		rawEvents:       make(chan event.DomainEvent, cfg.BufferSize),
		domainEvents:    make(chan event.DomainEvent, cfg.BufferSize),
		telemetryEvents: telemetryEvents,
		handlers:        handlers,
		cfg:             cfg,
	}
	o.matchmaker.SetEmitter(o.Emit)
	return o
}

// RegisterSinks appends consumers that will receive every moderated event.
// Sinks registered after Start are not seen by the running fanout.
func (o *Orchestrator) RegisterSinks(sinks ...contract.EventSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.permanentSinks = append(o.permanentSinks, sinks...)
}

// Emit pushes a domain event into the moderation pipeline.
// The push never blocks: a saturated pipeline drops the event.
func (o *Orchestrator) Emit(e event.DomainEvent) {
	select {
	case o.rawEvents <- e:
	default:
		o.log.Warn(fmt.Sprintf("Raw event channel full, dropping %s", e.Name()))
	}
}

// Attach hands a freshly accepted connection to a dedicated supervised worker.
// Connections arriving before Start are refused and closed.
func (o *Orchestrator) Attach(conn wire.Conn) {
	o.mu.Lock()
	ctx := o.runCtx
	o.mu.Unlock()

	if ctx == nil {
		o.log.Warn("Connection refused, engine not started")
		_ = conn.Close()
		return
	}

	worker := workers.NewConnectionWorker(o.log, conn, o.registry,
		o.matchmaker, o, ValidateUsername, o.rawEvents)
	o.supervisor.Start(ctx, worker)
}

// HistoryFor renders the archived conversations of a user as a reply body.
func (o *Orchestrator) HistoryFor(name string) (string, error) {
	records, err := o.sessions.SessionsFor(name)
	if err != nil {
		return "", err
	}
	return FormatHistory(name, records), nil
}

// Timeline returns the in-memory projection of recent moderated messages.
func (o *Orchestrator) Timeline() *projection.Timeline {
	return o.timeline
}

// Matchmaker returns the pairing engine.
func (o *Orchestrator) Matchmaker() contract.IMatchmaker {
	return o.matchmaker
}

// Start initiates the orchestrator by preparing all components (workers, moderation, pipeline)
// and then starting the supervisor. It uses a preparation pattern to minimize mutex locking time.
func (o *Orchestrator) Start(ctx context.Context) error {
	// 1. Preparation phase (No Lock)
	// Heavy tasks like I/O (loading files) and CPU (Aho-Corasick build) are done here.
	moderationWorker, err := o.prepareModeration("censored", o.cfg.CharReplacement)
	if err != nil {
		return err
	}

	fanoutWorker, newSinks := o.preparePipeline()

	pairingWorker := workers.NewPairingWorker(o.log, o.matchmaker, o.matchmaker.WakeChan())
	notifierWorker := workers.NewWaitingNotifierWorker(o.log, o.matchmaker, o.cfg.NotifyInterval)
	telemetryWorker := workers.NewTelemetryWorker(o.log, o.telemetryEvents, o.handlers)
	capacityWorker := workers.NewChannelCapacityWorker(o.log, o.namedChannels(), o.telemetryEvents, o.cfg.MetricInterval)
	heartbeatWorker := workers.NewHeartbeatWorker(o.log, o.matchmaker, o.telemetryEvents, o.cfg.MetricInterval)

	// 2. Critical Section (Short Lock)
	// We only lock to update the internal state and the supervisor.
	o.mu.Lock()
	o.permanentSinks = append(o.permanentSinks, newSinks...)

	// Registering all workers to the supervisor
	o.supervisor.Add(moderationWorker)
	o.supervisor.Add(fanoutWorker)
	o.supervisor.Add(pairingWorker, notifierWorker)
	o.supervisor.Add(telemetryWorker, capacityWorker, heartbeatWorker)

	runCtx, runCancel := context.WithCancel(ctx)
	o.runCtx = runCtx
	o.runCancel = runCancel
	o.mu.Unlock()

	// 3. Execution phase (No Lock)
	o.log.Info("Starting orchestrator and all supervised workers")
	go o.supervisor.Run(runCtx)
	return nil
}

// prepareModeration loads censored words and builds the Aho-Corasick automaton.
func (o *Orchestrator) prepareModeration(path string, charReplacement rune) (contract.Worker, error) {
	loader := NewCensoredLoader(censoredFolder)
	data, err := loader.LoadAll(path)
	if err != nil {
		return nil, err
	}

	o.log.Info(fmt.Sprintf("%d censored files loaded [%s]",
		len(data.Languages), strings.Join(data.Languages, ",")))
	o.log.Info(fmt.Sprintf("%d unique censored words loaded", len(data.Words)))

	moderator, err := moderation.NewModerator(data.Words, charReplacement, o.log)
	if err != nil {
		return nil, err
	}

	return workers.NewModerationWorker(moderator, o.rawEvents, o.domainEvents, o.telemetryEvents, o.log), nil
}

// preparePipeline initializes the sinks and the fanout worker.
func (o *Orchestrator) preparePipeline() (contract.Worker, []contract.EventSink) {
	// Local sinks that will be added to permanentSinks
	newSinks := []contract.EventSink{
		sink.NewTimelineSink(o.timeline),
		sink.NewHistorySink(o.sessions, o.log),
	}

	// We prepare the fanout with current permanent sinks + the new ones
	allSinks := append(o.permanentSinks, newSinks...)

	fanoutWorker := workers.NewEventFanout(
		o.log,
		allSinks,
		o.domainEvents,
		o.telemetryEvents,
		o.cfg.SinkTimeout,
	)

	return fanoutWorker, newSinks
}

func (o *Orchestrator) namedChannels() []workers.NamedChannel {
	return []workers.NamedChannel{
		{Name: "rawEvents", Channel: o.rawEvents},
		{Name: "domainEvents", Channel: o.domainEvents},
		{Name: "telemetryEvents", Channel: o.telemetryEvents},
	}
}

// Stop initiates a graceful shutdown of the orchestrator.
// It cancels the supervision context to signal workers to stop, waits for
// them to finish, then flushes the session archive.
func (o *Orchestrator) Stop() {
	o.log.Info("Requesting orchestrator shutdown")

	o.mu.Lock()
	cancel := o.runCancel
	o.mu.Unlock()

	// 1. Cancel the supervised context.
	// This immediately signals all workers to stop blocking on operations.
	if cancel != nil {
		cancel()
	}
	o.supervisor.Stop()

	// 2. Flush pending transcript index batches before the stores close.
	if err := o.sessions.Flush(); err != nil {
		o.log.Error(fmt.Sprintf("Failed to flush session archive : %v", err))
	}
}
