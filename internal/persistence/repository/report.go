package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type reportRepository struct {
	db    *gorm.DB
	codec *crypto.Codec
}

func NewReportRepository(db *gorm.DB, codec *crypto.Codec) domain.ReportRepository {
	return &reportRepository{db: db, codec: codec}
}

func (r *reportRepository) Create(ctx context.Context, report *domain.ChatReport) (err error) {
	ctx, span := startSpan(ctx, "reports.create")
	defer func() { endSpan(span, err) }()

	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	if report.Status == "" {
		report.Status = domain.ReportPending
	}

	env, err := r.codec.Encrypt(report.Message)
	if err != nil {
		return fmt.Errorf("failed to encrypt report message: %w", err)
	}

	model := chatReportModel{
		ID:         report.ID,
		MessageID:  report.MessageID,
		Scope:      string(report.Scope),
		SessionID:  report.SessionID,
		UserID:     report.UserID,
		Username:   report.Username,
		Message:    *env,
		Reason:     report.Reason,
		ReportedBy: report.ReportedBy,
		Status:     string(report.Status),
		CreatedAt:  report.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (r *reportRepository) List(ctx context.Context, status domain.ReportStatus, limit int) ([]*domain.ChatReport, error) {
	tx := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		tx = tx.Where("status = ?", string(status))
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	var models []chatReportModel
	if err := tx.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	out := make([]*domain.ChatReport, 0, len(models))
	for i := range models {
		m := &models[i]
		out = append(out, &domain.ChatReport{
			ID:         m.ID,
			MessageID:  m.MessageID,
			Scope:      domain.ReportScope(m.Scope),
			SessionID:  m.SessionID,
			UserID:     m.UserID,
			Username:   m.Username,
			Message:    r.codec.DecryptString(&m.Message),
			Reason:     m.Reason,
			ReportedBy: m.ReportedBy,
			Status:     domain.ReportStatus(m.Status),
			ResolvedBy: m.ResolvedBy,
			CreatedAt:  m.CreatedAt,
		})
	}
	return out, nil
}

func (r *reportRepository) Resolve(ctx context.Context, id, resolvedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&chatReportModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":      string(domain.ReportResolved),
			"resolved_by": resolvedBy,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to resolve report: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrReportNotFound
	}
	return nil
}
