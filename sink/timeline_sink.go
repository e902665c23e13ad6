package sink

import (
	"blindchat/domain/event"
	"blindchat/projection"
	"context"
)

// TimelineSink feeds the in-memory timeline from the event pipeline.
type TimelineSink struct {
	timeline *projection.Timeline
}

func NewTimelineSink(timeline *projection.Timeline) TimelineSink {
	return TimelineSink{timeline: timeline}
}

func (t TimelineSink) Consume(_ context.Context, e event.DomainEvent) error {
	t.timeline.Consume(e)
	return nil
}
