package workers

import (
	"context"
	"strings"
	"testing"
	"time"

	"blindchat/domain"
	"blindchat/domain/event"
	"blindchat/moderation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newTestModerationWorker(t *testing.T) (*ModerationWorker, chan event.DomainEvent, chan event.DomainEvent, chan event.Event) {
	t.Helper()
	log := discardLogger()
	moderator, err := moderation.NewModerator([]string{"moron"}, '*', log)
	require.NoError(t, err)

	rawEvents := make(chan event.DomainEvent, 4)
	domainEvents := make(chan event.DomainEvent, 4)
	telemetryChan := make(chan event.Event, 4)
	worker := NewModerationWorker(moderator, rawEvents, domainEvents, telemetryChan, log)
	return worker, rawEvents, domainEvents, telemetryChan
}

func TestModerationWorker_Sanitizes_Relayed_Messages(t *testing.T) {
	req := require.New(t)
	worker, rawEvents, domainEvents, telemetryChan := newTestModerationWorker(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	// When a relayed line carrying a censored word enters the pipeline
	sessionID := uuid.New()
	rawEvents <- event.MessageRelayed{
		SessionID: sessionID,
		Sender:    "alice",
		Content:   "you moron",
		At:        time.Now(),
	}

	// Then the copy leaving the pipeline is sanitized
	select {
	case evt := <-domainEvents:
		sanitized, ok := evt.(event.SanitizedMessage)
		req.True(ok, "event should be SanitizedMessage")
		req.Equal(sessionID, sanitized.SessionID)
		req.Equal("alice", sanitized.Sender)
		req.Equal("you *****", sanitized.Content)
		req.Equal([]string{"moron"}, sanitized.CensoredWords)
	case <-time.After(time.Second):
		req.Fail("sanitized event should have been produced")
	}

	// And the hit left a telemetry trace
	select {
	case evt := <-telemetryChan:
		req.Equal(event.CensorshipHit, evt.Type)
		censored, ok := evt.Payload.(event.Censored)
		req.True(ok, "payload should be Censored")
		req.Equal("moron", censored.Word)
	case <-time.After(time.Second):
		req.Fail("censorship hit should have been reported")
	}

	cancel()
	req.ErrorIs(<-done, context.Canceled)
}

func TestModerationWorker_Censors_Archived_Sessions(t *testing.T) {
	req := require.New(t)
	worker, rawEvents, domainEvents, _ := newTestModerationWorker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	startedAt := time.Now().Add(-2 * time.Minute)
	rawEvents <- event.SessionEnded{
		SessionID: uuid.New(),
		User1:     "alice",
		User2:     "bob",
		Cause:     domain.Left,
		StartedAt: startedAt,
		At:        time.Now(),
		Messages: []domain.Message{
			{SenderName: "alice", Content: "good morning bob, how are you doing today", CreatedAt: startedAt},
			{SenderName: "bob", Content: "you are a moron and I will not answer that question", CreatedAt: startedAt.Add(time.Second)},
		},
	}

	select {
	case evt := <-domainEvents:
		archived, ok := evt.(event.SessionArchived)
		req.True(ok, "event should be SessionArchived")
		req.Equal("alice", archived.User1)
		req.Equal("bob", archived.User2)
		req.Equal("en", archived.Lang)
		req.Len(archived.Messages, 2)
		req.Equal("good morning bob, how are you doing today", archived.Messages[0].Content)
		req.NotContains(archived.Messages[1].Content, "moron", "archived copy should be censored")
		req.Contains(archived.Messages[1].Content, strings.Repeat("*", len("moron")))
	case <-time.After(time.Second):
		req.Fail("archived event should have been produced")
	}
}

func TestModerationWorker_Passes_Other_Events_Through(t *testing.T) {
	req := require.New(t)
	worker, rawEvents, domainEvents, _ := newTestModerationWorker(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	registered := event.UserRegistered{ID: uuid.New(), Username: "alice", At: time.Now()}
	rawEvents <- registered

	select {
	case evt := <-domainEvents:
		req.Equal(registered, evt)
	case <-time.After(time.Second):
		req.Fail("event should have been forwarded untouched")
	}
}

func TestModerationWorker_Stops_On_Closed_Channel(t *testing.T) {
	req := require.New(t)
	worker, rawEvents, _, _ := newTestModerationWorker(t)

	done := make(chan error, 1)
	go func() { done <- worker.Run(context.Background()) }()

	close(rawEvents)

	select {
	case err := <-done:
		req.NoError(err)
	case <-time.After(time.Second):
		req.Fail("worker should stop when its input closes")
	}
}
