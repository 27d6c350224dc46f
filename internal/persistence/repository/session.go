package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type sessionRepository struct {
	db     *gorm.DB
	codec  *crypto.Codec
	logger *zap.Logger
}

func NewSessionRepository(db *gorm.DB, codec *crypto.Codec, logger *zap.Logger) domain.SessionRepository {
	return &sessionRepository{db: db, codec: codec, logger: logger}
}

func (r *sessionRepository) toModel(s *domain.Session) (*sessionModel, error) {
	strips := s.FlightStrips
	if strips == nil {
		strips = []any{}
	}
	stripsEnv, err := r.codec.Encrypt(strips)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt flight strips: %w", err)
	}

	var atisEnv *crypto.Envelope
	if s.ATIS != nil {
		if atisEnv, err = r.codec.Encrypt(s.ATIS); err != nil {
			return nil, fmt.Errorf("failed to encrypt atis: %w", err)
		}
	}

	return &sessionModel{
		SessionID:    s.ID,
		AccessID:     s.AccessID,
		AirportICAO:  s.AirportICAO,
		ActiveRunway: s.ActiveRunway,
		CreatedBy:    s.CreatedBy,
		IsPFATC:      s.IsPFATC,
		CustomName:   s.CustomName,
		FlightStrips: stripsEnv,
		ATIS:         atisEnv,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}, nil
}

// fromModel never fails: undecryptable fields fall back to empty values.
func (r *sessionRepository) fromModel(m *sessionModel) *domain.Session {
	s := &domain.Session{
		ID:           m.SessionID,
		AccessID:     m.AccessID,
		AirportICAO:  m.AirportICAO,
		ActiveRunway: m.ActiveRunway,
		CreatedBy:    m.CreatedBy,
		IsPFATC:      m.IsPFATC,
		CustomName:   m.CustomName,
		FlightStrips: []any{},
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
	if m.FlightStrips != nil {
		r.codec.DecryptJSON(m.FlightStrips, &s.FlightStrips)
	}
	if m.ATIS != nil {
		var atis domain.ATIS
		if r.codec.DecryptJSON(m.ATIS, &atis).OK() {
			s.ATIS = &atis
		}
	}
	return s
}

func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) (err error) {
	ctx, span := startSpan(ctx, "sessions.create", attribute.String("session.id", session.ID))
	defer func() { endSpan(span, err) }()

	model, err := r.toModel(session)
	if err != nil {
		return err
	}

	result := r.db.WithContext(ctx).Create(model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return domain.ErrSessionExists
		}
		return fmt.Errorf("failed to create session: %w", result.Error)
	}
	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (_ *domain.Session, err error) {
	ctx, span := startSpan(ctx, "sessions.get", attribute.String("session.id", id))
	defer func() { endSpan(span, err) }()

	var model sessionModel
	if err := r.db.WithContext(ctx).Where("session_id = ?", id).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return r.fromModel(&model), nil
}

func (r *sessionRepository) GetByUser(ctx context.Context, userID string) (_ []*domain.Session, err error) {
	ctx, span := startSpan(ctx, "sessions.by_user")
	defer func() { endSpan(span, err) }()

	var models []sessionModel
	if err := r.db.WithContext(ctx).
		Where("created_by = ?", userID).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list user sessions: %w", err)
	}
	return r.fromModels(models), nil
}

func (r *sessionRepository) Update(ctx context.Context, session *domain.Session) (err error) {
	ctx, span := startSpan(ctx, "sessions.update", attribute.String("session.id", session.ID))
	defer func() { endSpan(span, err) }()

	model, err := r.toModel(session)
	if err != nil {
		return err
	}

	// created_by, access_id and created_at are never rewritten
	result := r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("session_id = ?", session.ID).
		Updates(map[string]any{
			"airport_icao":  model.AirportICAO,
			"active_runway": model.ActiveRunway,
			"is_pfatc":      model.IsPFATC,
			"custom_name":   model.CustomName,
			"flight_strips": model.FlightStrips,
			"atis":          model.ATIS,
			"updated_at":    model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, span := startSpan(ctx, "sessions.delete", attribute.String("session.id", id))
	defer func() { endSpan(span, err) }()

	result := r.db.WithContext(ctx).Where("session_id = ?", id).Delete(&sessionModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *sessionRepository) ListAll(ctx context.Context) (_ []*domain.Session, err error) {
	ctx, span := startSpan(ctx, "sessions.list")
	defer func() { endSpan(span, err) }()

	var models []sessionModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return r.fromModels(models), nil
}

func (r *sessionRepository) Exists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Where("session_id = ?", id).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return count > 0, nil
}

type dayCount struct {
	Day   time.Time
	Count int64
}

func (r *sessionRepository) CountByDay(ctx context.Context, since time.Time) (map[string]int64, error) {
	var rows []dayCount
	if err := r.db.WithContext(ctx).
		Model(&sessionModel{}).
		Select("DATE(created_at) AS day, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("DATE(created_at)").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count sessions by day: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[domain.Day(row.Day).Format(domain.DateLayout)] = row.Count
	}
	return counts, nil
}

func (r *sessionRepository) fromModels(models []sessionModel) []*domain.Session {
	out := make([]*domain.Session, 0, len(models))
	for i := range models {
		out = append(out, r.fromModel(&models[i]))
	}
	return out
}
