package search

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Query
	}{
		{
			name:     "plain terms",
			input:    "badger at night",
			expected: Query{Terms: "badger at night"},
		},
		{
			name:     "slash command is dropped",
			input:    "/find badger",
			expected: Query{Terms: "badger"},
		},
		{
			name:     "user and lang flags",
			input:    "badger --user alice --lang fra",
			expected: Query{Terms: "badger", User: "alice", Lang: "fra"},
		},
		{
			name:     "flags only",
			input:    "--user bob",
			expected: Query{User: "bob"},
		},
		{
			name:     "limit flag",
			input:    "badger --limit 5",
			expected: Query{Terms: "badger", Limit: 5},
		},
		{
			name:     "broken limit is ignored",
			input:    "badger --limit many",
			expected: Query{Terms: "badger"},
		},
		{
			name:     "trailing flag without value is a term",
			input:    "badger --user",
			expected: Query{Terms: "badger --user"},
		},
		{
			name:     "unknown flag is skipped",
			input:    "badger --room 4",
			expected: Query{Terms: "badger"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			req := require.New(t)
			test.expected.RawInput = test.input

			query := NewSearchQuery(test.input)

			req.Equal(test.expected, *query)
		})
	}
}
