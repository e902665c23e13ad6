package sink

import (
	"blindchat/domain"
	"blindchat/domain/event"
	"blindchat/repositories"
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
)

type HistorySink struct {
	repository repositories.ISessionRepository
	log        *slog.Logger
}

func NewHistorySink(repository repositories.ISessionRepository, log *slog.Logger) HistorySink {
	return HistorySink{repository: repository, log: log}
}

func (h HistorySink) Consume(_ context.Context, e event.DomainEvent) error {
	switch evt := e.(type) {
	case event.SessionArchived:
		return h.repository.StoreSession(toSessionRecord(evt))
	default:
		h.log.Debug(fmt.Sprintf("Not implemented event : %v", evt))
		return nil
	}
}

func toSessionRecord(evt event.SessionArchived) repositories.SessionRecord {
	return repositories.SessionRecord{
		ID:        evt.SessionID,
		User1:     evt.User1,
		User2:     evt.User2,
		Timestamp: evt.At,
		Lang:      evt.Lang,
		Messages: lo.Map(evt.Messages, func(m domain.Message, _ int) repositories.RecordedLine {
			return repositories.RecordedLine{User: m.SenderName, Message: m.Content}
		}),
	}
}
