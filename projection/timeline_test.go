package projection

import (
	"blindchat/domain/event"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTimeline_Consume_SanitizedMessage(t *testing.T) {
	timeline := NewTimeline(10)

	evt1 := event.SanitizedMessage{
		SessionID: uuid.New(),
		Sender:    "Alice",
		Content:   "Hello Bob",
		At:        time.Now(),
	}

	evt2 := event.SanitizedMessage{
		SessionID: uuid.New(),
		Sender:    "Clara",
		Content:   "Hi Bob",
		At:        time.Now().Add(time.Second),
	}

	timeline.Consume(evt1)
	timeline.Consume(evt2)

	messages := timeline.Messages()
	require.Len(t, messages, 2)
	require.Equal(t, "Alice", messages[0].SenderName)
	require.Equal(t, "Clara", messages[1].SenderName)
}

func TestTimeline_Ignores_Unrelated_Events(t *testing.T) {
	timeline := NewTimeline(10)

	timeline.Consume(event.UserRegistered{ID: uuid.New(), Username: "Alice", At: time.Now()})

	require.Empty(t, timeline.Messages())
}

func TestTimeline_Keeps_Only_Most_Recent(t *testing.T) {
	timeline := NewTimeline(3)

	for i := 0; i < 5; i++ {
		timeline.Consume(event.SanitizedMessage{
			Sender:  "Alice",
			Content: fmt.Sprintf("line %d", i),
			At:      time.Now(),
		})
	}

	messages := timeline.Messages()
	require.Len(t, messages, 3)
	require.Equal(t, "line 2", messages[0].Content)
	require.Equal(t, "line 4", messages[2].Content)
}
