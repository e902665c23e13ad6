package search

import (
	"strconv"
	"strings"
)

// Query represents the structured parameters for a transcript search.
// It decouples the raw input line from the actual index engine requirements.
type Query struct {
	RawInput string // The original line typed by the user
	Terms    string // The actual text to search in Bluge
	User     string // Restrict hits to chats this display name took part in
	Lang     string // Restrict hits to transcripts detected in this language
	Limit    int    // Number of results, 0 keeps the caller's default
}

// NewSearchQuery parses a raw string to extract command-line style arguments.
// Example: /find invoice --user alice --lang fr --limit 5
func NewSearchQuery(input string) *Query {
	query := &Query{RawInput: input}

	parts := strings.Fields(input)
	var textTerms []string

	for i := 0; i < len(parts); i++ {
		part := parts[i]

		// Handle flags like --user alice or --limit 5
		if strings.HasPrefix(part, "--") && i+1 < len(parts) {
			key := strings.TrimPrefix(part, "--")
			val := parts[i+1]

			switch key {
			case "user":
				query.User = val
			case "lang":
				query.Lang = val
			case "limit":
				if limit, err := strconv.Atoi(val); err == nil && limit > 0 {
					query.Limit = limit
				}
			}
			i++ // Skip the value part in next iteration
			continue
		}

		// If it's not a flag, it's a search term
		if !strings.HasPrefix(part, "/") {
			textTerms = append(textTerms, part)
		}
	}

	query.Terms = strings.Join(textTerms, " ")
	return query
}
