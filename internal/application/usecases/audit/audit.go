package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/jobs"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/metrics"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/nonfatal"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultRetention = 90 * 24 * time.Hour
	recordTimeout    = 5 * time.Second
)

type AuditUseCase interface {
	// Record stores an entry and returns the outcome instead of an error:
	// a failed audit write never fails the audited action.
	Record(ctx context.Context, entry *domain.AuditLogEntry) nonfatal.Result
	RecordAsync(entry *domain.AuditLogEntry)
	Query(ctx context.Context, query domain.AuditQuery) ([]*domain.AuditLogEntry, domain.Pagination, error)
	Get(ctx context.Context, id int64) (*domain.AuditLogEntry, error)
	Cleanup(ctx context.Context, now time.Time) (int64, bool, error)
	Wait()
}

type auditUseCase struct {
	repository domain.AuditRepository
	throttle   *jobs.Throttle
	retention  time.Duration
	metrics    *metrics.Metrics
	logger     *zap.Logger
	pending    sync.WaitGroup
}

func NewAuditUseCase(
	repository domain.AuditRepository,
	retention time.Duration,
	minGap time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) AuditUseCase {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &auditUseCase{
		repository: repository,
		throttle:   jobs.NewThrottle(minGap),
		retention:  retention,
		metrics:    m,
		logger:     logger,
	}
}

func (uc *auditUseCase) Record(ctx context.Context, entry *domain.AuditLogEntry) nonfatal.Result {
	if entry.EventID == "" {
		entry.EventID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	res := nonfatal.From("audit.record", uc.repository.Create(ctx, entry))
	if !res.OK() {
		uc.metrics.AuditFailure()
	}
	return res.Log(uc.logger,
		zap.String("action", string(entry.ActionType)),
		zap.String("adminID", entry.AdminID))
}

// RecordAsync records on a detached context so the response is never held
// up by the audit write.
func (uc *auditUseCase) RecordAsync(entry *domain.AuditLogEntry) {
	uc.pending.Add(1)
	go func() {
		defer uc.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		uc.Record(ctx, entry)
	}()
}

// Wait blocks until every pending asynchronous record has finished.
func (uc *auditUseCase) Wait() {
	uc.pending.Wait()
}

func (uc *auditUseCase) Query(ctx context.Context, query domain.AuditQuery) ([]*domain.AuditLogEntry, domain.Pagination, error) {
	query.Normalize()
	if query.DateFrom != nil && query.DateTo != nil && query.DateTo.Before(*query.DateFrom) {
		return nil, domain.Pagination{}, fmt.Errorf("dateTo is before dateFrom: %w", domain.ErrInvalidInput)
	}

	entries, total, err := uc.repository.Find(ctx, query)
	if err != nil {
		return nil, domain.Pagination{}, fmt.Errorf("failed to query audit logs: %w", err)
	}
	return entries, domain.NewPagination(query.Page, query.Limit, total), nil
}

func (uc *auditUseCase) Get(ctx context.Context, id int64) (*domain.AuditLogEntry, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidInput
	}
	return uc.repository.GetByID(ctx, id)
}

// Cleanup deletes entries older than the retention window. A second call
// inside the throttle gap is a no-op and reports ran=false.
func (uc *auditUseCase) Cleanup(ctx context.Context, now time.Time) (deleted int64, ran bool, err error) {
	if !uc.throttle.Try(now) {
		return 0, false, nil
	}

	deleted, err = uc.repository.DeleteOlderThan(ctx, now.Add(-uc.retention))
	if err != nil {
		return 0, true, fmt.Errorf("failed to clean up audit logs: %w", err)
	}
	uc.logger.Info("audit log cleanup completed", zap.Int64("deleted", deleted))
	return deleted, true, nil
}
