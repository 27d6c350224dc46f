package globalchat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/metrics"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/nonfatal"
	"go.uber.org/zap"
)

const (
	DefaultHistoryLimit = 50
	DefaultMessageTTL   = 24 * time.Hour
)

type Moderator interface {
	Reason(text string) string
}

type SendInput struct {
	Message  string `json:"message"`
	Station  string `json:"station"`
	Position string `json:"position"`
}

type GlobalChatUseCase interface {
	Send(ctx context.Context, user *domain.User, input SendInput) (*domain.GlobalChatMessage, error)
	History(ctx context.Context, limit int) ([]*domain.GlobalChatMessage, error)
	Delete(ctx context.Context, messageID, userID string) error
	Purge(ctx context.Context, now time.Time) (int64, error)
}

type globalChatUseCase struct {
	messages  domain.GlobalChatRepository
	moderator Moderator
	publisher domain.EventPublisher
	metrics   *metrics.Metrics
	ttl       time.Duration
	limit     int
	logger    *zap.Logger
}

func NewGlobalChatUseCase(
	messages domain.GlobalChatRepository,
	moderator Moderator,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	ttl time.Duration,
	historyLimit int,
	logger *zap.Logger,
) GlobalChatUseCase {
	if ttl <= 0 {
		ttl = DefaultMessageTTL
	}
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &globalChatUseCase{
		messages:  messages,
		moderator: moderator,
		publisher: publisher,
		metrics:   m,
		ttl:       ttl,
		limit:     historyLimit,
		logger:    logger,
	}
}

func (uc *globalChatUseCase) Send(ctx context.Context, user *domain.User, input SendInput) (*domain.GlobalChatMessage, error) {
	if user == nil || user.ID == "" {
		return nil, domain.ErrForbidden
	}
	text, err := domain.ValidateMessageText(input.Message)
	if err != nil {
		return nil, err
	}

	airports, users := domain.ParseMentions(text)
	msg := &domain.GlobalChatMessage{
		ChatMessage: domain.ChatMessage{
			UserID:          user.ID,
			Username:        user.Username,
			Avatar:          user.Avatar,
			Message:         text,
			AirportMentions: airports,
			UserMentions:    users,
		},
		Station:  domain.NormalizeICAO(input.Station),
		Position: strings.ToUpper(strings.TrimSpace(input.Position)),
	}
	if uc.moderator != nil {
		if reason := uc.moderator.Reason(text); reason != "" {
			msg.Automodded = true
			msg.AutomodReason = reason
		}
	}

	if err := uc.messages.Create(ctx, msg); err != nil {
		uc.logger.Error("failed to store global chat message", zap.Error(err), zap.String("userID", user.ID))
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	if msg.Automodded {
		uc.metrics.Automod(string(domain.ReportScopeGlobal))
		if uc.publisher != nil {
			nonfatal.From("report automodded message",
				uc.publisher.PublishChatReport(ctx, domain.NewAutomodReport(&msg.ChatMessage, domain.ReportScopeGlobal))).
				Log(uc.logger, zap.String("messageID", msg.ID))
		}
	}

	return msg, nil
}

func (uc *globalChatUseCase) History(ctx context.Context, limit int) ([]*domain.GlobalChatMessage, error) {
	if limit <= 0 || limit > uc.limit {
		limit = uc.limit
	}
	return uc.messages.ListRecent(ctx, limit)
}

func (uc *globalChatUseCase) Delete(ctx context.Context, messageID, userID string) error {
	if messageID == "" {
		return domain.ErrInvalidInput
	}
	if userID == "" {
		return domain.ErrNotMessageOwner
	}
	if err := uc.messages.SoftDeleteOwned(ctx, messageID, userID); err != nil {
		return err
	}

	uc.logger.Info("global message deleted",
		zap.String("messageID", messageID),
		zap.String("userID", userID))
	return nil
}

// Purge removes messages older than the configured TTL.
func (uc *globalChatUseCase) Purge(ctx context.Context, now time.Time) (int64, error) {
	purged, err := uc.messages.PurgeOlderThan(ctx, now.Add(-uc.ttl))
	if err != nil {
		return 0, fmt.Errorf("failed to purge global chat: %w", err)
	}
	if purged > 0 {
		uc.logger.Info("expired global chat messages", zap.Int64("count", purged))
	}
	return purged, nil
}
