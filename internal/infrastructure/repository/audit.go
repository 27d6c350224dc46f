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

type auditRepository struct {
	entries []domain.AuditLogEntry // IPAddress holds envelope text
	nextID  int64
	codec   *crypto.Codec
	mu      *sync.RWMutex
}

func NewAuditRepository(codec *crypto.Codec) domain.AuditRepository {
	return &auditRepository{codec: codec, mu: &sync.RWMutex{}}
}

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditLogEntry) error {
	if entry == nil || entry.AdminID == "" || entry.ActionType == "" {
		return domain.ErrInvalidInput
	}

	stored := *entry
	if stored.EventID == "" {
		stored.EventID = uuid.NewString()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	if stored.IPAddress != "" {
		text, err := r.codec.EncryptToText(stored.IPAddress)
		if err != nil {
			return err
		}
		stored.IPAddress = text
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.EventID == stored.EventID {
			// replayed event, already recorded
			entry.ID = e.ID
			return nil
		}
	}

	r.nextID++
	stored.ID = r.nextID
	r.entries = append(r.entries, stored)

	entry.ID = stored.ID
	entry.EventID = stored.EventID
	entry.CreatedAt = stored.CreatedAt
	return nil
}

func matchesAudit(e *domain.AuditLogEntry, q domain.AuditQuery) bool {
	if q.AdminID != "" && e.AdminID != q.AdminID {
		return false
	}
	if q.ActionType != "" && string(e.ActionType) != q.ActionType {
		return false
	}
	if q.TargetUserID != "" && e.TargetUserID != q.TargetUserID {
		return false
	}
	if q.DateFrom != nil && e.CreatedAt.Before(*q.DateFrom) {
		return false
	}
	if q.DateTo != nil && e.CreatedAt.After(*q.DateTo) {
		return false
	}
	return true
}

func (r *auditRepository) Find(ctx context.Context, q domain.AuditQuery) ([]*domain.AuditLogEntry, int64, error) {
	q.Normalize()

	r.mu.RLock()
	matched := make([]domain.AuditLogEntry, 0)
	for i := range r.entries {
		if matchesAudit(&r.entries[i], q) {
			matched = append(matched, r.entries[i])
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	start := q.Offset()
	if start > len(matched) {
		start = len(matched)
	}
	end := start + q.Limit
	if end > len(matched) {
		end = len(matched)
	}

	page := make([]*domain.AuditLogEntry, 0, end-start)
	for _, e := range matched[start:end] {
		e.IPAddress = r.codec.DecryptIP(e.IPAddress)
		page = append(page, &e)
	}
	return page, total, nil
}

func (r *auditRepository) GetByID(ctx context.Context, id int64) (*domain.AuditLogEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.ID == id {
			e.IPAddress = r.codec.DecryptIP(e.IPAddress)
			return &e, nil
		}
	}
	return nil, domain.ErrAuditLogNotFound
}

func (r *auditRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := make([]domain.AuditLogEntry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.CreatedAt.Before(before) {
			continue
		}
		kept = append(kept, e)
	}
	deleted := int64(len(r.entries) - len(kept))
	r.entries = kept
	return deleted, nil
}
