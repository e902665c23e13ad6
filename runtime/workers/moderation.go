package workers

import (
	"context"
	"log/slog"
	"strings"

	"blindchat/domain"
	"blindchat/domain/event"
	"blindchat/moderation"

	"github.com/abadojack/whatlanggo"
	"github.com/samber/lo"
)

// ModerationWorker sits between the raw event stream and the rest of the
// pipeline. Relayed lines reach the partner untouched, only the copies
// that leave the session (persistence, observability) are censored here.
type ModerationWorker struct {
	moderator     moderation.Moderator
	rawEvents     chan event.DomainEvent
	domainEvents  chan event.DomainEvent
	telemetryChan chan event.Event
	log           *slog.Logger
}

func NewModerationWorker(moderator moderation.Moderator,
	rawEvents, domainEvents chan event.DomainEvent,
	telemetryChan chan event.Event, log *slog.Logger) *ModerationWorker {
	return &ModerationWorker{
		moderator:     moderator,
		rawEvents:     rawEvents,
		domainEvents:  domainEvents,
		telemetryChan: telemetryChan,
		log:           log,
	}
}

func (w ModerationWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case e, ok := <-w.rawEvents:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			out := w.moderate(e)
			select {
			case <-ctx.Done():
				w.log.Debug("Stopping worker")
				return ctx.Err()
			case w.domainEvents <- out:
			}
		}
	}
}

// moderate rewrites the events that carry user text, everything else
// passes through untouched.
func (w ModerationWorker) moderate(e event.DomainEvent) event.DomainEvent {
	switch evt := e.(type) {
	case event.MessageRelayed:
		return w.toSanitizedEvent(evt)
	case event.SessionEnded:
		return w.toArchivedEvent(evt)
	}
	return e
}

func (w ModerationWorker) toSanitizedEvent(evt event.MessageRelayed) event.SanitizedMessage {
	sanitized, foundWords := w.moderator.Censor(evt.Content)
	w.reportHits(foundWords)

	return event.SanitizedMessage{
		SessionID:     evt.SessionID,
		Sender:        evt.Sender,
		Content:       sanitized,
		CensoredWords: foundWords,
		At:            evt.At,
	}
}

func (w ModerationWorker) toArchivedEvent(evt event.SessionEnded) event.SessionArchived {
	contents := make([]string, 0, len(evt.Messages))
	messages := lo.Map(evt.Messages, func(m domain.Message, _ int) domain.Message {
		contents = append(contents, m.Content)
		censored, found := w.moderator.Censor(m.Content)
		w.reportHits(found)
		return domain.Message{
			SenderName: m.SenderName,
			Content:    censored,
			CreatedAt:  m.CreatedAt,
		}
	})

	info := whatlanggo.Detect(strings.Join(contents, "\n"))

	return event.SessionArchived{
		SessionID: evt.SessionID,
		User1:     evt.User1,
		User2:     evt.User2,
		Lang:      info.Lang.Iso6391(),
		StartedAt: evt.StartedAt,
		At:        evt.At,
		Messages:  messages,
	}
}

func (w ModerationWorker) reportHits(words []string) {
	for _, word := range words {
		select {
		case w.telemetryChan <- event.New(event.CensorshipHit, event.Censored{Word: word}):
		default:
			w.log.Debug("Observability telemetry event lost")
		}
	}
}
