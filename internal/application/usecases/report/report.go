package report

import (
	"context"
	"fmt"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"go.uber.org/zap"
)

const defaultListLimit = 100

type ReportUseCase interface {
	File(ctx context.Context, report *domain.ChatReport) error
	List(ctx context.Context, status domain.ReportStatus, limit int) ([]*domain.ChatReport, error)
	Resolve(ctx context.Context, id string, admin *domain.User) error
}

type reportUseCase struct {
	repository domain.ReportRepository
	logger     *zap.Logger
}

func NewReportUseCase(repository domain.ReportRepository, logger *zap.Logger) ReportUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &reportUseCase{repository: repository, logger: logger}
}

func (uc *reportUseCase) File(ctx context.Context, report *domain.ChatReport) error {
	if report == nil || report.MessageID == "" || report.Reason == "" {
		return domain.ErrInvalidInput
	}
	if report.Status == "" {
		report.Status = domain.ReportPending
	}
	if err := uc.repository.Create(ctx, report); err != nil {
		return fmt.Errorf("failed to store chat report: %w", err)
	}

	uc.logger.Info("chat report filed",
		zap.String("messageID", report.MessageID),
		zap.String("scope", string(report.Scope)),
		zap.String("reason", report.Reason))
	return nil
}

func (uc *reportUseCase) List(ctx context.Context, status domain.ReportStatus, limit int) ([]*domain.ChatReport, error) {
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	switch status {
	case "", domain.ReportPending, domain.ReportResolved:
	default:
		return nil, domain.ErrInvalidInput
	}
	return uc.repository.List(ctx, status, limit)
}

func (uc *reportUseCase) Resolve(ctx context.Context, id string, admin *domain.User) error {
	if admin == nil || !admin.IsAdmin {
		return domain.ErrForbidden
	}
	if id == "" {
		return domain.ErrInvalidInput
	}
	return uc.repository.Resolve(ctx, id, admin.ID)
}
