package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateMessageText(t *testing.T) {
	text, err := ValidateMessageText("  hello  ")
	assert.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = ValidateMessageText("   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = ValidateMessageText(strings.Repeat("a", MaxMessageLength))
	assert.NoError(t, err)

	_, err = ValidateMessageText(strings.Repeat("a", MaxMessageLength+1))
	assert.ErrorIs(t, err, ErrMessageTooLong)

	// limit counts characters, not bytes
	_, err = ValidateMessageText(strings.Repeat("ä", MaxMessageLength))
	assert.NoError(t, err)
}

func TestParseMentions(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		airports []string
		users    []string
	}{
		{"none", "hello", []string{}, []string{}},
		{"airport", "@EFKT wind check", []string{"EFKT"}, []string{}},
		{"user", "thanks @pilot_one.", []string{}, []string{"pilot_one"}},
		{"mixed and deduped", "@EGLL @bob @EGLL @bob @KJFK", []string{"EGLL", "KJFK"}, []string{"bob"}},
		{"lower case icao is a user", "@efkt hi", []string{}, []string{"efkt"}},
		{"five letters is a user", "@ABCDE", []string{}, []string{"ABCDE"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			airports, users := ParseMentions(tt.text)
			assert.Equal(t, tt.airports, airports)
			assert.Equal(t, tt.users, users)
		})
	}
}
