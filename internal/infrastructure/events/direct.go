package events

import (
	"context"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"go.uber.org/zap"
)

// ReportFiler stores chat reports.
type ReportFiler interface {
	File(ctx context.Context, report *domain.ChatReport) error
}

// DirectPublisher handles events in process when no broker is configured.
type DirectPublisher struct {
	reports ReportFiler
	logger  *zap.Logger
}

func NewDirectPublisher(reports ReportFiler, logger *zap.Logger) *DirectPublisher {
	return &DirectPublisher{reports: reports, logger: logger}
}

func (p *DirectPublisher) PublishSessionCreated(ctx context.Context, session *domain.Session) error {
	p.logger.Debug("session created", zap.String("sessionID", session.ID))
	return nil
}

func (p *DirectPublisher) PublishSessionDeleted(ctx context.Context, session *domain.Session) error {
	p.logger.Debug("session deleted", zap.String("sessionID", session.ID))
	return nil
}

func (p *DirectPublisher) PublishChatReport(ctx context.Context, report *domain.ChatReport) error {
	return p.reports.File(ctx, report)
}
