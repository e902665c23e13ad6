package runtime

import (
	"fmt"
	"strings"
	"time"

	"blindchat/repositories"
)

const noHistoryReply = "No chat history available for this user."

// FormatHistory renders archived chats the way the engine answers a history
// request. Sessions keep their chronological order and every line its
// original position. Each chat block ends with a blank line.
func FormatHistory(name string, records []repositories.SessionRecord) string {
	if len(records) == 0 {
		return noHistoryReply
	}
	var b strings.Builder
	for _, record := range records {
		other := record.User1
		if record.User1 == name {
			other = record.User2
		}
		fmt.Fprintf(&b, "Chat with %s at %s:\n", other, record.Timestamp.Format(time.RFC3339))
		for _, line := range record.Messages {
			fmt.Fprintf(&b, "  %s: %s\n", line.User, line.Message)
		}
		b.WriteString("\n")
	}
	return b.String()
}
