package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
)

type storedSession struct {
	meta   domain.Session // FlightStrips and ATIS are always nil here
	strips *crypto.Envelope
	atis   *crypto.Envelope
}

type sessionRepository struct {
	sessions  map[string]*storedSession // ID -> Session
	userIndex map[string]map[string]struct{}
	codec     *crypto.Codec
	mu        *sync.RWMutex
}

func NewSessionRepository(codec *crypto.Codec) domain.SessionRepository {
	return &sessionRepository{
		sessions:  make(map[string]*storedSession),
		userIndex: make(map[string]map[string]struct{}),
		codec:     codec,
		mu:        &sync.RWMutex{},
	}
}

func (r *sessionRepository) seal(s *domain.Session) (*storedSession, error) {
	strips := s.FlightStrips
	if strips == nil {
		strips = []any{}
	}
	stripsEnv, err := r.codec.Encrypt(strips)
	if err != nil {
		return nil, err
	}

	var atisEnv *crypto.Envelope
	if s.ATIS != nil {
		if atisEnv, err = r.codec.Encrypt(s.ATIS); err != nil {
			return nil, err
		}
	}

	meta := *s
	meta.FlightStrips = nil
	meta.ATIS = nil
	return &storedSession{meta: meta, strips: stripsEnv, atis: atisEnv}, nil
}

func (r *sessionRepository) open(ss *storedSession) *domain.Session {
	s := ss.meta
	s.FlightStrips = []any{}
	r.codec.DecryptJSON(ss.strips, &s.FlightStrips)
	if ss.atis != nil {
		var atis domain.ATIS
		if r.codec.DecryptJSON(ss.atis, &atis).OK() {
			s.ATIS = &atis
		}
	}
	return &s
}

// Create adds a session if its ID is unique.
func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidInput
	}

	ss, err := r.seal(session)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.ID]; exists {
		return domain.ErrSessionExists
	}

	r.sessions[session.ID] = ss
	owned, ok := r.userIndex[session.CreatedBy]
	if !ok {
		owned = make(map[string]struct{})
		r.userIndex[session.CreatedBy] = owned
	}
	owned[session.ID] = struct{}{}
	return nil
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}

	r.mu.RLock()
	ss, exists := r.sessions[id]
	r.mu.RUnlock()
	if !exists {
		return nil, domain.ErrSessionNotFound
	}
	return r.open(ss), nil
}

func (r *sessionRepository) GetByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Session, 0, len(r.userIndex[userID]))
	for id := range r.userIndex[userID] {
		out = append(out, r.open(r.sessions[id]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *sessionRepository) Update(ctx context.Context, session *domain.Session) error {
	if session == nil || session.ID == "" {
		return domain.ErrInvalidInput
	}

	ss, err := r.seal(session)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, exists := r.sessions[session.ID]
	if !exists {
		return domain.ErrSessionNotFound
	}
	// ownership and credentials never change
	ss.meta.CreatedBy = existing.meta.CreatedBy
	ss.meta.AccessID = existing.meta.AccessID
	ss.meta.CreatedAt = existing.meta.CreatedAt

	r.sessions[session.ID] = ss
	return nil
}

// Delete removes a session by ID.
func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ss, exists := r.sessions[id]
	if !exists {
		return domain.ErrSessionNotFound
	}

	delete(r.sessions, id)
	if owned, ok := r.userIndex[ss.meta.CreatedBy]; ok {
		delete(owned, id)
		if len(owned) == 0 {
			delete(r.userIndex, ss.meta.CreatedBy)
		}
	}
	return nil
}

func (r *sessionRepository) ListAll(ctx context.Context) ([]*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Session, 0, len(r.sessions))
	for _, ss := range r.sessions {
		out = append(out, r.open(ss))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *sessionRepository) Exists(ctx context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.sessions[id]
	return exists, nil
}

func (r *sessionRepository) CountByDay(ctx context.Context, since time.Time) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int64)
	for _, ss := range r.sessions {
		if ss.meta.CreatedAt.Before(since) {
			continue
		}
		counts[domain.Day(ss.meta.CreatedAt).Format(domain.DateLayout)]++
	}
	return counts, nil
}
