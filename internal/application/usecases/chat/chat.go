package chat

import (
	"context"
	"fmt"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/metrics"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/nonfatal"
	"go.uber.org/zap"
)

const (
	// Default limits
	DefaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Moderator returns the reason a text is flagged, or "" when it is clean.
type Moderator interface {
	Reason(text string) string
}

type ChatUseCase interface {
	Send(ctx context.Context, sessionID string, user *domain.User, text string) (*domain.ChatMessage, error)
	History(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error)
	Delete(ctx context.Context, sessionID, messageID, userID string) error
}

type chatUseCase struct {
	sessions   domain.SessionRepository
	messages   domain.ChatRepository
	partitions domain.PartitionProvisioner
	moderator  Moderator
	publisher  domain.EventPublisher
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

func NewChatUseCase(
	sessions domain.SessionRepository,
	messages domain.ChatRepository,
	partitions domain.PartitionProvisioner,
	moderator Moderator,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) ChatUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &chatUseCase{
		sessions:   sessions,
		messages:   messages,
		partitions: partitions,
		moderator:  moderator,
		publisher:  publisher,
		metrics:    m,
		logger:     logger,
	}
}

func (uc *chatUseCase) prepare(ctx context.Context, sessionID string) error {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return err
	}
	if _, err := uc.sessions.GetByID(ctx, sessionID); err != nil {
		return err
	}
	if err := uc.partitions.EnsurePartition(ctx, sessionID); err != nil {
		uc.logger.Error("failed to ensure partition", zap.Error(err), zap.String("sessionID", sessionID))
		return fmt.Errorf("failed to prepare session storage: %w", err)
	}
	return nil
}

// Send validates, tags and stores a message. A flagged message is still
// stored and returned; it is reported for review.
func (uc *chatUseCase) Send(ctx context.Context, sessionID string, user *domain.User, text string) (*domain.ChatMessage, error) {
	if user == nil || user.ID == "" {
		return nil, domain.ErrForbidden
	}
	text, err := domain.ValidateMessageText(text)
	if err != nil {
		return nil, err
	}
	if err := uc.prepare(ctx, sessionID); err != nil {
		return nil, err
	}

	airports, users := domain.ParseMentions(text)
	msg := &domain.ChatMessage{
		SessionID:       sessionID,
		UserID:          user.ID,
		Username:        user.Username,
		Avatar:          user.Avatar,
		Message:         text,
		AirportMentions: airports,
		UserMentions:    users,
	}
	if uc.moderator != nil {
		if reason := uc.moderator.Reason(text); reason != "" {
			msg.Automodded = true
			msg.AutomodReason = reason
		}
	}

	if err := uc.messages.Create(ctx, msg); err != nil {
		uc.logger.Error("failed to store chat message", zap.Error(err), zap.String("sessionID", sessionID))
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	if msg.Automodded {
		uc.metrics.Automod(string(domain.ReportScopeSession))
		if uc.publisher != nil {
			nonfatal.From("report automodded message",
				uc.publisher.PublishChatReport(ctx, domain.NewAutomodReport(msg, domain.ReportScopeSession))).
				Log(uc.logger, zap.String("messageID", msg.ID))
		}
	}

	return msg, nil
}

func (uc *chatUseCase) History(ctx context.Context, sessionID string, limit int) ([]*domain.ChatMessage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if err := uc.prepare(ctx, sessionID); err != nil {
		return nil, err
	}
	return uc.messages.ListRecent(ctx, sessionID, limit)
}

// Delete removes a message. The author check happens in the repository so
// every path enforces it the same way.
func (uc *chatUseCase) Delete(ctx context.Context, sessionID, messageID, userID string) error {
	if messageID == "" {
		return domain.ErrInvalidInput
	}
	if userID == "" {
		return domain.ErrNotMessageOwner
	}
	if err := uc.prepare(ctx, sessionID); err != nil {
		return err
	}

	if err := uc.messages.DeleteOwned(ctx, sessionID, messageID, userID); err != nil {
		uc.logger.Info("chat message delete rejected",
			zap.String("messageID", messageID),
			zap.String("sessionID", sessionID),
			zap.String("userID", userID),
			zap.Error(err))
		return err
	}

	uc.logger.Info("message deleted",
		zap.String("messageID", messageID),
		zap.String("sessionID", sessionID),
		zap.String("userID", userID))
	return nil
}
