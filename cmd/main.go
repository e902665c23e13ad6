package main

import (
	"blindchat/domain/event"
	"blindchat/internal"
	"blindchat/repositories"
	"blindchat/runtime"
	"blindchat/runtime/workers"
	"blindchat/transport"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for transports and background workers.
func run() error {
	// 1. Configuration & Logger
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	// 2. Stores (BadgerDB & Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	//  Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return fmt.Errorf("transcript index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing Bluge index...")
		_ = writer.Close()
	}()

	// 3. Setup Supervision & Orchestration
	telemetryEvents := make(chan event.Event, config.BufferSize)
	sup := workers.NewSupervisor(log, telemetryEvents, config.RestartInterval)
	registry := runtime.NewRegistry()
	sessionRepository := repositories.NewSessionRepository(db, writer, log, config.LimitSessions, config.BatchSize)

	counter := event.NewCounter()
	censoredHits := event.NewCensoredHandler(log)
	handlers := []event.Handler{
		censoredHits,
		event.NewChannelCapacityHandler(log, config.LowCapacityThreshold),
		event.NewWorkerRestartedAfterPanicHandler(log, counter),
		event.NewMessageRelayedHandler(log, counter),
		event.NewLatencyHandler(log, config.LatencyThreshold),
		event.NewProcessTrackerHandler(log),
	}

	orchestrator := runtime.NewOrchestrator(
		log, sup, registry, sessionRepository, telemetryEvents, handlers,
		runtime.PipelineConfig{
			BufferSize:       config.BufferSize,
			SinkTimeout:      config.SinkTimeout,
			NotifyInterval:   config.NotifyInterval,
			MetricInterval:   config.MetricInterval,
			TimelineCapacity: config.TimelineCapacity,
			CharReplacement:  charReplacement,
		},
	)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Transports (TCP & WebSocket)
	// The supervisor only launches workers registered before Start.
	tcpServer := transport.NewTCPServer(log, fmt.Sprintf("%s:%d", config.Host, config.TcpPort), orchestrator)
	wsServer := transport.NewWebsocketServer(log, fmt.Sprintf("%s:%d", config.Host, config.WsPort), orchestrator)
	sup.Add(tcpServer, wsServer)

	// 6. Start the Engine
	if err = orchestrator.Start(ctx); err != nil {
		return fmt.Errorf("orchestrator failed to start: %w", err)
	}

	// 7. Debug Inspector
	if log.Enabled(ctx, slog.LevelDebug) {
		url := fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort)
		log.Info("Debug Badger inspector available", "url", url)
		internal.StartDebugServer(db, config.DebugPort, "/inspect", sessionMapper, func() map[string]any {
			waiting, paired := orchestrator.Matchmaker().Stats()
			return map[string]any{
				"users online":     registry.Count(),
				"waiting":          waiting,
				"paired":           paired,
				"messages relayed": counter.Get(event.MessageRelayedType),
				"censored words":   lo.Sum(lo.Values(censoredHits.Hits())),
			}
		})
	}

	// 8. Wait for Stop & Final Cleanup
	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	orchestrator.Stop()
	log.Info("Program stopped cleanly")

	return nil
}

// sessionMapper renders archived sessions in the debug inspector.
func sessionMapper(key string, val []byte) internal.InspectRow {
	row := internal.DefaultMapper(key, val)
	var record repositories.SessionRecord
	if err := json.Unmarshal(val, &record); err != nil {
		return row
	}
	row.Type = "SESSION"
	row.Users = fmt.Sprintf("%s / %s", record.User1, record.User2)
	row.Detail = fmt.Sprintf("%d message(s) [%s]", len(record.Messages), record.Lang)
	return row
}
