package statistics

import (
	"context"
	"fmt"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/jobs"
	"go.uber.org/zap"
)

const (
	DefaultRetention = 30 * 24 * time.Hour
	DefaultDays      = 30
	maxDays          = 365
)

type StatisticsUseCase interface {
	Increment(ctx context.Context, counter domain.StatCounter) error
	Range(ctx context.Context, days int) ([]domain.DailyStatistic, error)
	Backfill(ctx context.Context, days int) error
	Cleanup(ctx context.Context, now time.Time) (int64, bool, error)
}

type statisticsUseCase struct {
	repository domain.StatisticsRepository
	sessions   domain.SessionRepository
	flights    domain.FlightRepository
	partitions domain.PartitionProvisioner
	throttle   *jobs.Throttle
	retention  time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

func NewStatisticsUseCase(
	repository domain.StatisticsRepository,
	sessions domain.SessionRepository,
	flights domain.FlightRepository,
	partitions domain.PartitionProvisioner,
	retention time.Duration,
	minGap time.Duration,
	logger *zap.Logger,
) StatisticsUseCase {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &statisticsUseCase{
		repository: repository,
		sessions:   sessions,
		flights:    flights,
		partitions: partitions,
		throttle:   jobs.NewThrottle(minGap),
		retention:  retention,
		now:        time.Now,
		logger:     logger,
	}
}

func (uc *statisticsUseCase) Increment(ctx context.Context, counter domain.StatCounter) error {
	if !counter.Valid() {
		return fmt.Errorf("unknown counter %q: %w", counter, domain.ErrInvalidInput)
	}
	return uc.repository.Increment(ctx, uc.now(), counter)
}

// ClampDays maps a requested window onto the one Range serves.
func ClampDays(days int) int {
	if days <= 0 {
		return DefaultDays
	}
	if days > maxDays {
		return maxDays
	}
	return days
}

// Range returns the last days of statistics, rebuilding them from direct
// counts when the window is empty.
func (uc *statisticsUseCase) Range(ctx context.Context, days int) ([]domain.DailyStatistic, error) {
	days = ClampDays(days)
	to := domain.Day(uc.now())
	from := to.AddDate(0, 0, -(days - 1))

	stats, err := uc.repository.Range(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load statistics: %w", err)
	}
	if len(stats) > 0 {
		return stats, nil
	}

	if err := uc.Backfill(ctx, days); err != nil {
		return nil, err
	}
	return uc.repository.Range(ctx, from, to)
}

// Backfill recomputes new sessions and new flights per day from the
// session registry and every flight partition. Login and user counters
// have no source to rebuild from and stay as they are.
func (uc *statisticsUseCase) Backfill(ctx context.Context, days int) error {
	days = ClampDays(days)
	since := domain.Day(uc.now()).AddDate(0, 0, -(days - 1))

	sessionCounts, err := uc.sessions.CountByDay(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to count sessions: %w", err)
	}

	flightCounts := make(map[string]int64)
	partitions, err := uc.partitions.ListPartitions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list partitions: %w", err)
	}
	for _, sessionID := range partitions {
		counts, err := uc.flights.CountByDay(ctx, sessionID, since)
		if err != nil {
			uc.logger.Warn("skipping partition in backfill", zap.String("sessionID", sessionID), zap.Error(err))
			continue
		}
		for day, n := range counts {
			flightCounts[day] += n
		}
	}

	existing, err := uc.repository.Range(ctx, since, uc.now())
	if err != nil {
		return fmt.Errorf("failed to load statistics: %w", err)
	}
	byDay := make(map[string]domain.DailyStatistic, len(existing))
	for _, s := range existing {
		byDay[s.Date.Format(domain.DateLayout)] = s
	}

	written := 0
	for i := 0; i < days; i++ {
		day := since.AddDate(0, 0, i)
		key := day.Format(domain.DateLayout)
		sessions, flights := sessionCounts[key], flightCounts[key]
		if sessions == 0 && flights == 0 {
			continue
		}

		stat := byDay[key]
		stat.Date = day
		stat.NewSessions = sessions
		stat.NewFlights = flights
		if err := uc.repository.Upsert(ctx, stat); err != nil {
			return fmt.Errorf("failed to store statistics for %s: %w", key, err)
		}
		written++
	}

	uc.logger.Info("statistics backfilled",
		zap.Int("days", days),
		zap.Int("rows", written),
		zap.Int("partitions", len(partitions)))
	return nil
}

// Cleanup prunes rows older than the retention window, at most once per
// throttle gap.
func (uc *statisticsUseCase) Cleanup(ctx context.Context, now time.Time) (deleted int64, ran bool, err error) {
	if !uc.throttle.Try(now) {
		return 0, false, nil
	}

	deleted, err = uc.repository.DeleteOlderThan(ctx, now.Add(-uc.retention))
	if err != nil {
		return 0, true, fmt.Errorf("failed to clean up statistics: %w", err)
	}
	uc.logger.Info("statistics cleanup completed", zap.Int64("deleted", deleted))
	return deleted, true, nil
}
