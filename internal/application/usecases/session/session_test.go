package session

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStats struct {
	counters []domain.StatCounter
}

func (s *recordingStats) Increment(_ context.Context, c domain.StatCounter) error {
	s.counters = append(s.counters, c)
	return nil
}

type recordingPublisher struct {
	created, deleted []string
}

func (p *recordingPublisher) PublishSessionCreated(_ context.Context, s *domain.Session) error {
	p.created = append(p.created, s.ID)
	return nil
}

func (p *recordingPublisher) PublishSessionDeleted(_ context.Context, s *domain.Session) error {
	p.deleted = append(p.deleted, s.ID)
	return nil
}

func (p *recordingPublisher) PublishChatReport(context.Context, *domain.ChatReport) error {
	return errors.New("not expected")
}

type fixture struct {
	uc         *sessionUseCase
	repo       domain.SessionRepository
	partitions *repository.PartitionStore
	stats      *recordingStats
	publisher  *recordingPublisher
}

func newFixture(t *testing.T, quota Quota) *fixture {
	t.Helper()
	codec, err := crypto.NewCodec("test-secret-key-with-enough-bytes", nil)
	require.NoError(t, err)

	f := &fixture{
		repo:       repository.NewSessionRepository(codec),
		partitions: repository.NewPartitionStore(),
		stats:      &recordingStats{},
		publisher:  &recordingPublisher{},
	}
	f.uc = NewSessionUseCase(f.repo, f.partitions, f.stats, f.publisher, quota, nil).(*sessionUseCase)
	return f
}

var owner = &domain.User{ID: "owner", Username: "controller"}

func TestCreate_ReturnsIdentifiersAndProvisions(t *testing.T) {
	f := newFixture(t, Quota{})
	ctx := context.Background()

	s, err := f.uc.Create(ctx, owner, CreateInput{AirportICAO: "EFKT", ActiveRunway: "34"})
	require.NoError(t, err)

	assert.NoError(t, domain.ValidateSessionID(s.ID))
	assert.Len(t, s.AccessID, 64)
	_, err = hex.DecodeString(s.AccessID)
	assert.NoError(t, err)
	assert.Equal(t, "EFKT", s.AirportICAO)
	assert.Equal(t, "34", s.ActiveRunway)
	assert.False(t, s.CreatedAt.IsZero())
	_, err = time.Parse(time.RFC3339, s.CreatedAt.Format(time.RFC3339))
	assert.NoError(t, err)

	ids, err := f.partitions.ListPartitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{s.ID}, ids)
	assert.Equal(t, []domain.StatCounter{domain.StatNewSessions}, f.stats.counters)
	assert.Equal(t, []string{s.ID}, f.publisher.created)
}

func TestCreate_RejectsBadAirport(t *testing.T) {
	f := newFixture(t, Quota{})
	_, err := f.uc.Create(context.Background(), owner, CreateInput{AirportICAO: "EF"})
	assert.ErrorIs(t, err, domain.ErrInvalidAirport)

	_, err = f.uc.Create(context.Background(), nil, CreateInput{AirportICAO: "EFKT"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestCreate_RetriesOnIDCollision(t *testing.T) {
	f := newFixture(t, Quota{})
	ctx := context.Background()

	first, err := f.uc.Create(ctx, owner, CreateInput{AirportICAO: "EFKT"})
	require.NoError(t, err)

	ids := []string{first.ID, first.ID, "fresh123"}
	f.uc.newID = func() (string, error) {
		id := ids[0]
		ids = ids[1:]
		return id, nil
	}

	second, err := f.uc.Create(ctx, owner, CreateInput{AirportICAO: "EFHK"})
	require.NoError(t, err)
	assert.Equal(t, "fresh123", second.ID)

	f.uc.newID = func() (string, error) { return first.ID, nil }
	_, err = f.uc.Create(ctx, owner, CreateInput{AirportICAO: "EFHK"})
	assert.ErrorIs(t, err, domain.ErrSessionExists)
}

func TestCreate_QuotaAndDeleteOldest(t *testing.T) {
	f := newFixture(t, Quota{MaxPerUser: 2, MaxPerElevatedUser: 3})
	ctx := context.Background()

	var evicted []string
	f.uc.OnDeleted(func(id string) { evicted = append(evicted, id) })

	oldest, err := f.uc.Create(ctx, owner, CreateInput{AirportICAO: "EFKT"})
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = f.uc.Create(ctx, owner, CreateInput{AirportICAO: "EFHK"})
	require.NoError(t, err)

	_, err = f.uc.Create(ctx, owner, CreateInput{AirportICAO: "EFRO"})
	var limitErr *domain.SessionLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.ErrorIs(t, err, domain.ErrSessionLimitReached)
	assert.Equal(t, 2, limitErr.Limit)
	assert.Equal(t, oldest.ID, limitErr.OldestSessionID)

	_, err = f.uc.Create(ctx, owner, CreateInput{AirportICAO: "EFRO", DeleteOldest: true})
	require.NoError(t, err)
	assert.Equal(t, []string{oldest.ID}, evicted)
	assert.Equal(t, []string{oldest.ID}, f.publisher.deleted)

	_, err = f.uc.GetByID(ctx, oldest.ID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	tester := &domain.User{ID: "tester", IsTester: true}
	for i := 0; i < 3; i++ {
		_, err = f.uc.Create(ctx, tester, CreateInput{AirportICAO: "EGLL"})
		require.NoError(t, err)
	}
	_, err = f.uc.Create(ctx, tester, CreateInput{AirportICAO: "EGLL"})
	assert.ErrorIs(t, err, domain.ErrSessionLimitReached)
}

func TestUpdate_RequiresControl(t *testing.T) {
	f := newFixture(t, Quota{})
	ctx := context.Background()

	s, err := f.uc.Create(ctx, owner, CreateInput{AirportICAO: "EFKT", ActiveRunway: "34"})
	require.NoError(t, err)

	runway := "16"
	holder := domain.NewMember(nil, s.AccessID)
	updated, err := f.uc.Update(ctx, s.ID, holder, domain.SessionUpdate{
		ActiveRunway: &runway,
		ATIS:         &domain.ATIS{Letter: "C", Text: "INFO C"},
	})
	require.NoError(t, err)
	assert.Equal(t, "16", updated.ActiveRunway)

	stored, err := f.uc.GetByID(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ATIS)
	assert.Equal(t, "C", stored.ATIS.Letter)

	stranger := domain.NewMember(&domain.User{ID: "stranger"}, "nope")
	_, err = f.uc.Update(ctx, s.ID, stranger, domain.SessionUpdate{ActiveRunway: &runway})
	assert.ErrorIs(t, err, domain.ErrInvalidAccessID)

	_, err = f.uc.ValidateAccess(ctx, s.ID, "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidAccessID)
	_, err = f.uc.ValidateAccess(ctx, s.ID, s.AccessID)
	assert.NoError(t, err)
}

func TestRenameAndDelete_RequireOwnership(t *testing.T) {
	f := newFixture(t, Quota{})
	ctx := context.Background()

	s, err := f.uc.Create(ctx, owner, CreateInput{AirportICAO: "EFKT"})
	require.NoError(t, err)

	holder := domain.NewMember(&domain.User{ID: "guest"}, s.AccessID)
	_, err = f.uc.Rename(ctx, s.ID, holder, "mine now")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, f.uc.Delete(ctx, s.ID, holder), domain.ErrForbidden)

	me := domain.NewMember(owner, "")
	renamed, err := f.uc.Rename(ctx, s.ID, me, "Evening ops")
	require.NoError(t, err)
	assert.Equal(t, "Evening ops", renamed.CustomName)

	require.NoError(t, f.uc.Delete(ctx, s.ID, me))
	ids, err := f.partitions.ListPartitions(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = f.uc.GetByID(ctx, "not-valid")
	assert.ErrorIs(t, err, domain.ErrInvalidSessionID)
}
