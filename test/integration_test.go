package test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"blindchat/domain/event"
	"blindchat/domain/wire"
	"blindchat/mocks"
	"blindchat/repositories"
	"blindchat/runtime"
	"blindchat/runtime/workers"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// duplexConn is a scriptable connection channel. The test pushes frames
// into in and reads what the engine sends from out.
type duplexConn struct {
	in     chan wire.Frame
	out    chan wire.Frame
	closed chan struct{}
	once   sync.Once
}

func newDuplexConn() *duplexConn {
	return &duplexConn{
		in:     make(chan wire.Frame, 16),
		out:    make(chan wire.Frame, 64),
		closed: make(chan struct{}),
	}
}

func (c *duplexConn) Send(f wire.Frame) error {
	select {
	case c.out <- f:
		return nil
	case <-c.closed:
		return io.ErrClosedPipe
	}
}

func (c *duplexConn) Receive() (wire.Frame, error) {
	select {
	case f := <-c.in:
		return f, nil
	case <-c.closed:
		return wire.Frame{}, io.ErrClosedPipe
	}
}

func (c *duplexConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// waitForKind reads engine frames until the wanted kind arrives, skipping
// queue reminders on the way.
func waitForKind(t *testing.T, c *duplexConn, kind wire.Kind) wire.Frame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case f := <-c.out:
			if f.Kind == kind {
				return f
			}
		case <-deadline:
			t.Fatalf("no %s frame within 2s", kind)
			return wire.Frame{}
		}
	}
}

func Test_Scenario(t *testing.T) {
	ctx := context.Background()
	req := require.New(t)
	// Reduced to 16 Mo for testing (avoid 20 Go of storage)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(t.TempDir()))
	req.NoError(err)

	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	telemetryChan := make(chan event.Event, 64)
	supervisor := workers.NewSupervisor(log, telemetryChan, 200*time.Millisecond)
	registry := runtime.NewRegistry()
	sessionRepository := repositories.NewSessionRepository(db, writer, log, lo.ToPtr(100), 1)
	orchestrator := runtime.NewOrchestrator(
		log, supervisor, registry, sessionRepository, telemetryChan, nil,
		runtime.PipelineConfig{
			BufferSize:       64,
			SinkTimeout:      time.Second,
			NotifyInterval:   100 * time.Millisecond,
			MetricInterval:   time.Hour,
			TimelineCapacity: 32,
			CharReplacement:  '*',
		},
	)

	// An extra sink registered before Start sees every moderated event
	ctrl := gomock.NewController(t)
	extraSink := mocks.NewMockEventSink(ctrl)
	extraSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	orchestrator.RegisterSinks(extraSink)

	req.NoError(orchestrator.Start(ctx))

	// Clean everything at the end of the test
	t.Cleanup(func() {
		orchestrator.Stop()
		_ = writer.Close()
		_ = db.Close()
	})

	// Given two attached clients
	alice := newDuplexConn()
	orchestrator.Attach(alice)
	alice.in <- wire.UsernameFrame("alice")
	waitForKind(t, alice, wire.Connected)

	bob := newDuplexConn()
	orchestrator.Attach(bob)
	bob.in <- wire.UsernameFrame("bob")
	waitForKind(t, bob, wire.Connected)

	// They are paired together
	waitForKind(t, alice, wire.ChatFound)
	waitForKind(t, bob, wire.ChatFound)

	// When lines cross the relay
	alice.in <- wire.TextFrame("hello from the integration run")
	f := waitForKind(t, bob, wire.Text)
	req.Equal("hello from the integration run", f.Body)

	bob.in <- wire.TextFrame("you moron")
	f = waitForKind(t, alice, wire.Text)
	req.Equal("you moron", f.Body)

	// And bob departs
	bob.in <- wire.Frame{Kind: wire.Disconnected}
	waitForKind(t, alice, wire.PartnerLeft)

	// Then the survivor is requeued
	waitForKind(t, alice, wire.NoPartnerFound)

	// And the chat reaches the archive, censored
	req.Eventually(func() bool {
		records, err := sessionRepository.SessionsFor("alice")
		return err == nil && len(records) == 1
	}, 2*time.Second, 50*time.Millisecond, "Chat has never reached the archive")

	records, err := sessionRepository.SessionsFor("alice")
	req.NoError(err)
	req.Equal("alice", records[0].User1)
	req.Equal("bob", records[0].User2)
	req.Len(records[0].Messages, 2)
	req.Equal("hello from the integration run", records[0].Messages[0].Message)
	req.Equal("you *****", records[0].Messages[1].Message)
}
