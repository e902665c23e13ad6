package workers

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"blindchat/contract"
	"blindchat/domain/event"
	"blindchat/mocks"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventFanoutWorker_Fanout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSink := mocks.NewMockEventSink(ctrl)
	mockSink1 := mocks.NewMockEventSink(ctrl)

	fanoutWorker := NewEventFanout(
		log, []contract.EventSink{mockSink, mockSink1},
		nil, nil, 10*time.Second)

	// Given two sinks consuming the same event
	done := make(chan struct{})
	count := 0
	consume := func(ctx context.Context, evt event.DomainEvent) error {
		count++
		if count == 2 {
			close(done)
		}
		return nil
	}
	mockSink.EXPECT().Consume(gomock.Any(), gomock.Any()).DoAndReturn(consume).Times(1)
	mockSink1.EXPECT().Consume(gomock.Any(), gomock.Any()).DoAndReturn(consume).Times(1)

	evt := event.SanitizedMessage{Sender: "alice", Content: "hello"}

	// When an event is received and handled by worker
	fanoutWorker.Fanout(context.Background(), evt)

	// Then both sinks saw it
	select {
	case <-done:
	case <-time.After(1 * time.Second):
		req.Fail("Sinks did not consume the event in time")
	}
}

func TestEventFanoutWorker_SinkTimeout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSink := mocks.NewMockEventSink(ctrl)
	mockSink1 := mocks.NewMockEventSink(ctrl)

	sinkTimeout := 20 * time.Millisecond
	fanoutWorker := NewEventFanout(
		log, []contract.EventSink{mockSink, mockSink1},
		nil, nil, sinkTimeout)

	// Given a first sink stuck until its context expires
	mockSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(
			func(ctx context.Context, evt event.DomainEvent) error {
				<-ctx.Done()     // Waiting for timeout to trigger cancellation
				return ctx.Err() // Sending back "context deadline exceeded"
			},
		).
		Times(1)
	// Given a healthy second sink
	mockSink1.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	evt := event.SanitizedMessage{Sender: "alice", Content: "hello"}

	// When an event is received and handled by worker
	fanoutWorker.Fanout(context.Background(), evt)

	// Then the stuck sink did not prevent the second one from consuming
	req.True(ctrl.Satisfied(), "every sink should have been visited")
}

func TestEventFanoutWorker_Absorbs_Sink_Errors(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSink := mocks.NewMockEventSink(ctrl)
	mockSink1 := mocks.NewMockEventSink(ctrl)

	fanoutWorker := NewEventFanout(
		log, []contract.EventSink{mockSink, mockSink1},
		nil, nil, time.Second)

	// Given a sink rejecting the event
	mockSink.EXPECT().Consume(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("disk full")).Times(1)
	mockSink1.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	// When an event is received and handled by worker
	fanoutWorker.Fanout(context.Background(), event.SanitizedMessage{})

	// Then the failure stayed inside the fanout
	req.True(ctrl.Satisfied())
}

func TestEventFanoutWorker_Run_Reports_Telemetry(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockSink := mocks.NewMockEventSink(ctrl)
	mockSink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	domainEvents := make(chan event.DomainEvent, 4)
	telemetryEvents := make(chan event.Event, 4)

	fanoutWorker := NewEventFanout(
		log, []contract.EventSink{mockSink},
		domainEvents, telemetryEvents, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- fanoutWorker.Run(ctx) }()

	// When a sanitized chat line crosses the pipeline
	domainEvents <- event.SanitizedMessage{Sender: "alice", Content: "hello"}

	// Then the telemetry copy is typed as a relayed message
	select {
	case evt := <-telemetryEvents:
		req.Equal(event.MessageRelayedType, evt.Type)
	case <-time.After(time.Second):
		req.Fail("telemetry event should have been emitted")
	}

	// And other events stay generic
	domainEvents <- event.PairFormed{User1: "alice", User2: "bob"}
	select {
	case evt := <-telemetryEvents:
		req.Equal(event.DomainType, evt.Type)
	case <-time.After(time.Second):
		req.Fail("telemetry event should have been emitted")
	}

	cancel()
	req.NoError(<-done)
}
