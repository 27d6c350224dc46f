package statistics

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRepository struct {
	domain.StatisticsRepository
	deletes int
}

func (r *countingRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	r.deletes++
	return r.StatisticsRepository.DeleteOlderThan(ctx, before)
}

type fixture struct {
	uc       *statisticsUseCase
	repo     *countingRepository
	sessions domain.SessionRepository
	flights  domain.FlightRepository
	store    *repository.PartitionStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codec, err := crypto.NewCodec("test-secret-key-with-enough-bytes", nil)
	require.NoError(t, err)

	f := &fixture{
		repo:     &countingRepository{StatisticsRepository: repository.NewStatisticsRepository()},
		sessions: repository.NewSessionRepository(codec),
		store:    repository.NewPartitionStore(),
	}
	f.flights = repository.NewFlightRepository(f.store, codec)
	f.uc = NewStatisticsUseCase(f.repo, f.sessions, f.flights, f.store, 30*24*time.Hour, 12*time.Hour, nil).(*statisticsUseCase)
	return f
}

func TestIncrement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.uc.Increment(ctx, domain.StatLogins))
	require.NoError(t, f.uc.Increment(ctx, domain.StatLogins))
	assert.ErrorIs(t, f.uc.Increment(ctx, "drop_table"), domain.ErrInvalidInput)

	stats, err := f.uc.Range(ctx, 1)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.EqualValues(t, 2, stats[0].Logins)
}

func TestRange_BackfillsEmptyWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, id := range []string{"aaaa1111", "bbbb2222"} {
		s, err := domain.NewSession(id, strings.Repeat("a", 64), "owner", "EFKT", "34", false)
		require.NoError(t, err)
		require.NoError(t, f.sessions.Create(ctx, s))
		require.NoError(t, f.store.EnsurePartition(ctx, id))
		require.NoError(t, f.flights.Create(ctx, &domain.Flight{SessionID: id, Callsign: "FIN" + id[:1]}))
	}
	require.NoError(t, f.flights.Create(ctx, &domain.Flight{SessionID: "aaaa1111", Callsign: "FIN9"}))

	stats, err := f.uc.Range(ctx, 7)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.EqualValues(t, 2, stats[0].NewSessions)
	assert.EqualValues(t, 3, stats[0].NewFlights)
	assert.True(t, stats[0].Date.Equal(domain.Day(time.Now())))
}

func TestCleanup_BackToBackRunsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, f.repo.Upsert(ctx, domain.DailyStatistic{Date: now.AddDate(0, 0, -40), Logins: 3}))

	deleted, ran, err := f.uc.Cleanup(ctx, now)
	require.NoError(t, err)
	assert.True(t, ran)
	assert.EqualValues(t, 1, deleted)

	deleted, ran, err = f.uc.Cleanup(ctx, now.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, ran)
	assert.Zero(t, deleted)
	assert.Equal(t, 1, f.repo.deletes)
}
