package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/google/uuid"
)

type storedReport struct {
	report domain.ChatReport
	body   *crypto.Envelope
}

type reportRepository struct {
	reports map[string]*storedReport
	codec   *crypto.Codec
	mu      *sync.RWMutex
}

func NewReportRepository(codec *crypto.Codec) domain.ReportRepository {
	return &reportRepository{
		reports: make(map[string]*storedReport),
		codec:   codec,
		mu:      &sync.RWMutex{},
	}
}

func (r *reportRepository) Create(ctx context.Context, report *domain.ChatReport) error {
	if report == nil || report.MessageID == "" {
		return domain.ErrInvalidInput
	}
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.Status == "" {
		report.Status = domain.ReportPending
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	body, err := r.codec.Encrypt(report.Message)
	if err != nil {
		return err
	}
	stored := &storedReport{report: *report, body: body}
	stored.report.Message = ""

	r.mu.Lock()
	defer r.mu.Unlock()

	r.reports[report.ID] = stored
	return nil
}

func (r *reportRepository) List(ctx context.Context, status domain.ReportStatus, limit int) ([]*domain.ChatReport, error) {
	r.mu.RLock()
	out := make([]*domain.ChatReport, 0, len(r.reports))
	for _, sr := range r.reports {
		if status != "" && sr.report.Status != status {
			continue
		}
		report := sr.report
		report.Message = r.codec.DecryptString(sr.body)
		out = append(out, &report)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *reportRepository) Resolve(ctx context.Context, id, resolvedBy string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sr, ok := r.reports[id]
	if !ok {
		return domain.ErrReportNotFound
	}
	sr.report.Status = domain.ReportResolved
	sr.report.ResolvedBy = resolvedBy
	return nil
}
