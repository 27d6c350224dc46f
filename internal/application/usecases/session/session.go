package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/nonfatal"
	"go.uber.org/zap"
)

const (
	maxIDAttempts = 5

	DefaultMaxPerUser         = 10
	DefaultMaxPerElevatedUser = 50
)

type CreateInput struct {
	AirportICAO  string `json:"airportIcao" validate:"required,len=4,alphanum"`
	ActiveRunway string `json:"activeRunway" validate:"max=8"`
	IsPFATC      bool   `json:"isPFATC"`
	CustomName   string `json:"customName" validate:"max=50"`
	DeleteOldest bool   `json:"deleteOldest"`
}

type Quota struct {
	MaxPerUser         int
	MaxPerElevatedUser int
}

func (q Quota) limitFor(user *domain.User) int {
	if user.Elevated() {
		if q.MaxPerElevatedUser > 0 {
			return q.MaxPerElevatedUser
		}
		return DefaultMaxPerElevatedUser
	}
	if q.MaxPerUser > 0 {
		return q.MaxPerUser
	}
	return DefaultMaxPerUser
}

// StatsRecorder bumps a daily counter.
type StatsRecorder interface {
	Increment(ctx context.Context, counter domain.StatCounter) error
}

type SessionUseCase interface {
	Create(ctx context.Context, user *domain.User, input CreateInput) (*domain.Session, error)
	GetByID(ctx context.Context, sessionID string) (*domain.Session, error)
	GetForMember(ctx context.Context, sessionID string, member *domain.Member) (*domain.Session, error)
	GetByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	Update(ctx context.Context, sessionID string, member *domain.Member, update domain.SessionUpdate) (*domain.Session, error)
	Rename(ctx context.Context, sessionID string, member *domain.Member, name string) (*domain.Session, error)
	Delete(ctx context.Context, sessionID string, member *domain.Member) error
	ListAll(ctx context.Context) ([]*domain.Session, error)
	ValidateAccess(ctx context.Context, sessionID, accessID string) (*domain.Session, error)
	OnDeleted(fn func(sessionID string))
}

type sessionUseCase struct {
	repository domain.SessionRepository
	partitions domain.PartitionProvisioner
	stats      StatsRecorder
	publisher  domain.EventPublisher
	quota      Quota
	logger     *zap.Logger

	mu        sync.RWMutex
	onDeleted []func(sessionID string)
	newID     func() (string, error)
}

func NewSessionUseCase(
	repository domain.SessionRepository,
	partitions domain.PartitionProvisioner,
	stats StatsRecorder,
	publisher domain.EventPublisher,
	quota Quota,
	logger *zap.Logger,
) SessionUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &sessionUseCase{
		repository: repository,
		partitions: partitions,
		stats:      stats,
		publisher:  publisher,
		quota:      quota,
		logger:     logger,
		newID:      domain.NewSessionID,
	}
}

func (uc *sessionUseCase) OnDeleted(fn func(sessionID string)) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.onDeleted = append(uc.onDeleted, fn)
}

func (uc *sessionUseCase) Create(ctx context.Context, user *domain.User, input CreateInput) (*domain.Session, error) {
	if user == nil || user.ID == "" {
		return nil, domain.ErrForbidden
	}

	owned, err := uc.repository.GetByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user sessions: %w", err)
	}

	limit := uc.quota.limitFor(user)
	if len(owned) >= limit {
		sort.Slice(owned, func(i, j int) bool { return owned[i].CreatedAt.Before(owned[j].CreatedAt) })
		if !input.DeleteOldest {
			return nil, &domain.SessionLimitError{Limit: limit, OldestSessionID: owned[0].ID}
		}
		for _, oldest := range owned[:len(owned)-limit+1] {
			if err := uc.remove(ctx, oldest); err != nil {
				return nil, fmt.Errorf("failed to evict oldest session: %w", err)
			}
			uc.logger.Info("evicted oldest session",
				zap.String("sessionID", oldest.ID),
				zap.String("userID", user.ID))
		}
	}

	accessID, err := domain.NewAccessID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate access id: %w", err)
	}

	var session *domain.Session
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := uc.newID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate session id: %w", err)
		}

		exists, err := uc.repository.Exists(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check session id: %w", err)
		}
		if exists {
			continue
		}

		candidate, err := domain.NewSession(id, accessID, user.ID, input.AirportICAO, input.ActiveRunway, input.IsPFATC)
		if err != nil {
			return nil, err
		}
		if err := candidate.Rename(input.CustomName); err != nil {
			return nil, err
		}

		if err := uc.repository.Create(ctx, candidate); err != nil {
			if errors.Is(err, domain.ErrSessionExists) {
				continue
			}
			uc.logger.Error("failed to create session", zap.Error(err), zap.String("userID", user.ID))
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		session = candidate
		break
	}
	if session == nil {
		return nil, fmt.Errorf("failed to allocate a session id after %d attempts: %w", maxIDAttempts, domain.ErrSessionExists)
	}

	// partitions are provisioned lazily on first use as well
	nonfatal.From("ensure partition", uc.partitions.EnsurePartition(ctx, session.ID)).
		Log(uc.logger, zap.String("sessionID", session.ID))
	if uc.stats != nil {
		nonfatal.From("increment new sessions", uc.stats.Increment(ctx, domain.StatNewSessions)).Log(uc.logger)
	}
	if uc.publisher != nil {
		nonfatal.From("publish session created", uc.publisher.PublishSessionCreated(ctx, session)).Log(uc.logger)
	}

	uc.logger.Info("session created",
		zap.String("sessionID", session.ID),
		zap.String("airport", session.AirportICAO),
		zap.String("userID", user.ID))

	return session, nil
}

func (uc *sessionUseCase) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	session, err := uc.repository.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// GetForMember returns the session when the member is the creator, an admin
// or holds the access id.
func (uc *sessionUseCase) GetForMember(ctx context.Context, sessionID string, member *domain.Member) (*domain.Session, error) {
	session, err := uc.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !member.CanControl(session) {
		return nil, domain.ErrInvalidAccessID
	}
	return session, nil
}

func (uc *sessionUseCase) GetByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("user ID cannot be empty: %w", domain.ErrInvalidInput)
	}
	sessions, err := uc.repository.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user sessions: %w", err)
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].CreatedAt.After(sessions[j].CreatedAt) })
	return sessions, nil
}

func (uc *sessionUseCase) Update(ctx context.Context, sessionID string, member *domain.Member, update domain.SessionUpdate) (*domain.Session, error) {
	session, err := uc.GetForMember(ctx, sessionID, member)
	if err != nil {
		return nil, err
	}

	session.Apply(update)
	if err := uc.repository.Update(ctx, session); err != nil {
		uc.logger.Error("failed to update session", zap.Error(err), zap.String("sessionID", sessionID))
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	return session, nil
}

func (uc *sessionUseCase) Rename(ctx context.Context, sessionID string, member *domain.Member, name string) (*domain.Session, error) {
	session, err := uc.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !member.CanManage(session) {
		return nil, domain.ErrForbidden
	}
	if err := session.Rename(name); err != nil {
		return nil, err
	}
	if err := uc.repository.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to rename session: %w", err)
	}
	return session, nil
}

func (uc *sessionUseCase) Delete(ctx context.Context, sessionID string, member *domain.Member) error {
	session, err := uc.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if !member.CanManage(session) {
		return domain.ErrForbidden
	}
	if err := uc.remove(ctx, session); err != nil {
		return err
	}

	uc.logger.Info("session deleted",
		zap.String("sessionID", sessionID),
		zap.String("userID", member.UserID()))
	return nil
}

func (uc *sessionUseCase) remove(ctx context.Context, session *domain.Session) error {
	if err := uc.repository.Delete(ctx, session.ID); err != nil {
		uc.logger.Error("failed to delete session", zap.Error(err), zap.String("sessionID", session.ID))
		return fmt.Errorf("failed to delete session: %w", err)
	}

	nonfatal.From("drop partition", uc.partitions.DropPartition(ctx, session.ID)).
		Log(uc.logger, zap.String("sessionID", session.ID))
	if uc.publisher != nil {
		nonfatal.From("publish session deleted", uc.publisher.PublishSessionDeleted(ctx, session)).Log(uc.logger)
	}

	uc.mu.RLock()
	hooks := append([]func(string){}, uc.onDeleted...)
	uc.mu.RUnlock()
	for _, fn := range hooks {
		fn(session.ID)
	}
	return nil
}

func (uc *sessionUseCase) ListAll(ctx context.Context) ([]*domain.Session, error) {
	sessions, err := uc.repository.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func (uc *sessionUseCase) ValidateAccess(ctx context.Context, sessionID, accessID string) (*domain.Session, error) {
	session, err := uc.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if accessID == "" || session.AccessID != accessID {
		return nil, domain.ErrInvalidAccessID
	}
	return session, nil
}
