package runtime_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"blindchat/domain"
	"blindchat/domain/event"
	"blindchat/domain/wire"
	"blindchat/mocks"
	"blindchat/repositories"
	"blindchat/runtime"
	"blindchat/runtime/workers"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type RecordingSink struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (s *RecordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *RecordingSink) Events() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.DomainEvent(nil), s.events...)
}

type stubConn struct {
	mu     sync.Mutex
	closed bool
}

func (c *stubConn) Send(wire.Frame) error { return nil }

func (c *stubConn) Receive() (wire.Frame, error) { return wire.Frame{}, io.EOF }

func (c *stubConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *stubConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func newTestOrchestrator(sessions repositories.ISessionRepository) *runtime.Orchestrator {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	telemetry := make(chan event.Event, 64)
	supervisor := workers.NewSupervisor(log, telemetry, 50*time.Millisecond)

	// Long intervals keep the periodic workers quiet during the tests
	return runtime.NewOrchestrator(log, supervisor, runtime.NewRegistry(),
		sessions, telemetry, nil, runtime.PipelineConfig{
			BufferSize:       16,
			SinkTimeout:      time.Second,
			NotifyInterval:   time.Hour,
			MetricInterval:   time.Hour,
			TimelineCapacity: 16,
			CharReplacement:  '*',
		})
}

func Test_Orchestrator_dispatches_domain_events_to_sinks(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sessions := mocks.NewMockISessionRepository(ctrl)
	sessions.EXPECT().Flush().Return(nil).AnyTimes()

	// Arrange
	orchestrator := newTestOrchestrator(sessions)
	recording := &RecordingSink{}
	orchestrator.RegisterSinks(recording)

	req.NoError(orchestrator.Start(context.Background()))
	defer orchestrator.Stop()

	// Act
	orchestrator.Emit(event.PairFormed{
		SessionID: uuid.New(),
		User1:     "alice",
		User2:     "bob",
		At:        time.Now(),
	})

	// Assert
	req.Eventually(func() bool {
		return len(recording.Events()) == 1
	}, time.Second, 10*time.Millisecond, "sink should receive the event")

	evt, ok := recording.Events()[0].(event.PairFormed)
	req.True(ok, "event should be PairFormed")
	req.Equal("alice", evt.User1)
	req.Equal("bob", evt.User2)
}

func Test_Orchestrator_censors_relayed_messages_before_fanout(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sessions := mocks.NewMockISessionRepository(ctrl)
	sessions.EXPECT().Flush().Return(nil).AnyTimes()

	// Arrange
	orchestrator := newTestOrchestrator(sessions)
	recording := &RecordingSink{}
	orchestrator.RegisterSinks(recording)

	req.NoError(orchestrator.Start(context.Background()))
	defer orchestrator.Stop()

	// Act
	orchestrator.Emit(event.MessageRelayed{
		SessionID: uuid.New(),
		Sender:    "alice",
		Content:   "you moron",
		At:        time.Now(),
	})

	// Assert
	req.Eventually(func() bool {
		return len(recording.Events()) == 1
	}, time.Second, 10*time.Millisecond, "sink should receive the event")

	evt, ok := recording.Events()[0].(event.SanitizedMessage)
	req.True(ok, "event should be SanitizedMessage")
	req.Equal("you *****", evt.Content)
	req.Equal([]string{"moron"}, evt.CensoredWords)

	// The in-memory timeline observed the sanitized copy, never the original
	messages := orchestrator.Timeline().Messages()
	req.Len(messages, 1)
	req.Equal("you *****", messages[0].Content)
}

func Test_Orchestrator_archives_ended_sessions(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	stored := make(chan repositories.SessionRecord, 1)
	sessions := mocks.NewMockISessionRepository(ctrl)
	sessions.EXPECT().Flush().Return(nil).AnyTimes()
	sessions.EXPECT().
		StoreSession(gomock.Any()).
		DoAndReturn(func(record repositories.SessionRecord) error {
			stored <- record
			return nil
		}).
		Times(1)

	// Arrange
	orchestrator := newTestOrchestrator(sessions)
	req.NoError(orchestrator.Start(context.Background()))
	defer orchestrator.Stop()

	sessionID := uuid.New()
	startedAt := time.Now().Add(-time.Minute)

	// Act
	orchestrator.Emit(event.SessionEnded{
		SessionID: sessionID,
		User1:     "alice",
		User2:     "bob",
		Cause:     domain.Left,
		StartedAt: startedAt,
		At:        time.Now(),
		Messages: []domain.Message{
			{SenderName: "alice", Content: "you moron", CreatedAt: startedAt},
			{SenderName: "bob", Content: "that was rude", CreatedAt: startedAt.Add(time.Second)},
		},
	})

	// Assert
	select {
	case record := <-stored:
		req.Equal(sessionID, record.ID)
		req.Equal("alice", record.User1)
		req.Equal("bob", record.User2)
		req.Len(record.Messages, 2)
		req.Equal("you *****", record.Messages[0].Message, "archived lines should be censored")
		req.Equal("that was rude", record.Messages[1].Message)
	case <-time.After(time.Second):
		req.Fail("session should reach the archive sink")
	}
}

func Test_Orchestrator_refuses_connections_before_start(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sessions := mocks.NewMockISessionRepository(ctrl)

	// Arrange
	orchestrator := newTestOrchestrator(sessions)
	conn := &stubConn{}

	// Act
	orchestrator.Attach(conn)

	// Assert
	req.True(conn.Closed(), "connection should be closed when the engine is not started")
}

func Test_Orchestrator_attaches_connections_after_start(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sessions := mocks.NewMockISessionRepository(ctrl)
	sessions.EXPECT().Flush().Return(nil).AnyTimes()

	// Arrange
	orchestrator := newTestOrchestrator(sessions)
	req.NoError(orchestrator.Start(context.Background()))
	defer orchestrator.Stop()

	// Given a transport that dies before announcing a username
	conn := &stubConn{}

	// Act
	orchestrator.Attach(conn)

	// Assert
	req.Eventually(conn.Closed, time.Second, 10*time.Millisecond,
		"worker should clean up the failed connection")
}

func Test_Orchestrator_stop_flushes_session_archive(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sessions := mocks.NewMockISessionRepository(ctrl)
	sessions.EXPECT().Flush().Return(nil).Times(1)

	// Arrange
	orchestrator := newTestOrchestrator(sessions)
	req.NoError(orchestrator.Start(context.Background()))

	// Act
	orchestrator.Stop()
}
