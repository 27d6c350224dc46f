package domain

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const MaxMessageLength = 500

var (
	mentionPattern        = regexp.MustCompile(`@([A-Za-z0-9_.]{2,32})`)
	airportMentionPattern = regexp.MustCompile(`^[A-Z]{4}$`)
)

type ChatMessage struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"sessionId,omitempty"`
	UserID          string    `json:"userId"`
	Username        string    `json:"username"`
	Avatar          string    `json:"avatar,omitempty"`
	Message         string    `json:"message"`
	AirportMentions []string  `json:"airportMentions"`
	UserMentions    []string  `json:"userMentions"`
	Automodded      bool      `json:"automodded"`
	AutomodReason   string    `json:"automodReason,omitempty"`
	SentAt          time.Time `json:"sentAt"`
}

type GlobalChatMessage struct {
	ChatMessage
	Station   string     `json:"station,omitempty"`
	Position  string     `json:"position,omitempty"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

type ChatRepository interface {
	Create(ctx context.Context, message *ChatMessage) error
	GetByID(ctx context.Context, sessionID, messageID string) (*ChatMessage, error)
	ListRecent(ctx context.Context, sessionID string, limit int) ([]*ChatMessage, error)
	// DeleteOwned removes the message only when userID is its author.
	DeleteOwned(ctx context.Context, sessionID, messageID, userID string) error
}

type GlobalChatRepository interface {
	Create(ctx context.Context, message *GlobalChatMessage) error
	ListRecent(ctx context.Context, limit int) ([]*GlobalChatMessage, error)
	// SoftDeleteOwned sets deleted_at only when userID is the author.
	SoftDeleteOwned(ctx context.Context, messageID, userID string) error
	PurgeOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// ValidateMessageText trims the text and enforces the length ceiling.
func ValidateMessageText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return "", ErrMessageTooLong
	}
	return text, nil
}

// ParseMentions splits @tokens into airport mentions (4 upper case
// letters, an ICAO code) and user mentions. Both lists are de-duplicated
// and keep first-seen order.
func ParseMentions(text string) (airports []string, users []string) {
	airports = []string{}
	users = []string{}
	seen := map[string]struct{}{}

	for _, match := range mentionPattern.FindAllStringSubmatch(text, -1) {
		token := strings.TrimRight(match[1], ".")
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}

		if airportMentionPattern.MatchString(token) {
			airports = append(airports, token)
			continue
		}
		users = append(users, token)
	}

	return airports, users
}
