package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type auditRepository struct {
	db     *gorm.DB
	codec  *crypto.Codec
	logger *zap.Logger
}

func NewAuditRepository(db *gorm.DB, codec *crypto.Codec, logger *zap.Logger) domain.AuditRepository {
	return &auditRepository{db: db, codec: codec, logger: logger}
}

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditLogEntry) (err error) {
	ctx, span := startSpan(ctx, "audit.create", attribute.String("audit.action", string(entry.ActionType)))
	defer func() { endSpan(span, err) }()

	if entry.AdminID == "" || entry.ActionType == "" {
		return domain.ErrInvalidInput
	}
	if entry.EventID == "" {
		entry.EventID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	model := auditLogModel{
		EventID:        entry.EventID,
		AdminID:        entry.AdminID,
		AdminUsername:  entry.AdminUsername,
		ActionType:     string(entry.ActionType),
		TargetUserID:   entry.TargetUserID,
		TargetUsername: entry.TargetUsername,
		UserAgent:      entry.UserAgent,
		CreatedAt:      entry.CreatedAt,
		Details:        "{}",
	}
	if len(entry.Details) > 0 {
		raw, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
		model.Details = string(raw)
	}
	if entry.IPAddress != "" {
		if model.IPAddress, err = r.codec.EncryptToText(entry.IPAddress); err != nil {
			return fmt.Errorf("failed to encrypt ip address: %w", err)
		}
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(&model)
	if result.Error != nil {
		r.logger.Error("failed to create audit log", zap.Error(result.Error))
		return result.Error
	}

	entry.ID = model.ID
	return nil
}

func (r *auditRepository) Find(ctx context.Context, query domain.AuditQuery) (_ []*domain.AuditLogEntry, _ int64, err error) {
	ctx, span := startSpan(ctx, "audit.find")
	defer func() { endSpan(span, err) }()

	query.Normalize()

	qb := &QueryBuilder{}
	qb.AddIf(query.AdminID, "admin_id = ?")
	qb.AddIf(query.ActionType, "action_type = ?")
	qb.AddIf(query.TargetUserID, "target_user_id = ?")
	if query.DateFrom != nil {
		qb.Add("created_at >= ?", *query.DateFrom)
	}
	if query.DateTo != nil {
		qb.Add("created_at <= ?", *query.DateTo)
	}

	tx := r.db.WithContext(ctx).Model(&auditLogModel{})
	if where, args := qb.Build(); where != "" {
		tx = tx.Where(where, args...)
	}
	tx = tx.Session(&gorm.Session{})

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	var models []auditLogModel
	if err := tx.Order("created_at DESC").
		Offset(query.Offset()).
		Limit(query.Limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to find audit logs: %w", err)
	}

	out := make([]*domain.AuditLogEntry, 0, len(models))
	for i := range models {
		out = append(out, r.fromModel(&models[i]))
	}
	return out, total, nil
}

func (r *auditRepository) GetByID(ctx context.Context, id int64) (*domain.AuditLogEntry, error) {
	var model auditLogModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAuditLogNotFound
		}
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}
	return r.fromModel(&model), nil
}

func (r *auditRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&auditLogModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete audit logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *auditRepository) fromModel(m *auditLogModel) *domain.AuditLogEntry {
	entry := &domain.AuditLogEntry{
		ID:             m.ID,
		EventID:        m.EventID,
		AdminID:        m.AdminID,
		AdminUsername:  m.AdminUsername,
		ActionType:     domain.AuditAction(m.ActionType),
		TargetUserID:   m.TargetUserID,
		TargetUsername: m.TargetUsername,
		IPAddress:      r.codec.DecryptIP(m.IPAddress),
		UserAgent:      m.UserAgent,
		CreatedAt:      m.CreatedAt,
	}
	if m.Details != "" && m.Details != "{}" {
		details := map[string]any{}
		if err := json.Unmarshal([]byte(m.Details), &details); err == nil {
			entry.Details = details
		}
	}
	return entry
}
