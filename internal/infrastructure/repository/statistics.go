package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
)

type statisticsRepository struct {
	days map[string]*domain.DailyStatistic // date -> row
	mu   *sync.RWMutex
}

func NewStatisticsRepository() domain.StatisticsRepository {
	return &statisticsRepository{
		days: make(map[string]*domain.DailyStatistic),
		mu:   &sync.RWMutex{},
	}
}

// row must be called with the lock held.
func (r *statisticsRepository) row(date time.Time) *domain.DailyStatistic {
	day := domain.Day(date)
	key := day.Format(domain.DateLayout)
	stat, ok := r.days[key]
	if !ok {
		stat = &domain.DailyStatistic{Date: day}
		r.days[key] = stat
	}
	return stat
}

func (r *statisticsRepository) Increment(ctx context.Context, date time.Time, counter domain.StatCounter) error {
	if !counter.Valid() {
		return fmt.Errorf("unknown counter %q: %w", counter, domain.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stat := r.row(date)
	switch counter {
	case domain.StatLogins:
		stat.Logins++
	case domain.StatNewSessions:
		stat.NewSessions++
	case domain.StatNewFlights:
		stat.NewFlights++
	case domain.StatNewUsers:
		stat.NewUsers++
	}
	return nil
}

func (r *statisticsRepository) Upsert(ctx context.Context, stat domain.DailyStatistic) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.row(stat.Date)
	row.Logins = stat.Logins
	row.NewSessions = stat.NewSessions
	row.NewFlights = stat.NewFlights
	row.NewUsers = stat.NewUsers
	return nil
}

func (r *statisticsRepository) Range(ctx context.Context, from, to time.Time) ([]domain.DailyStatistic, error) {
	from, to = domain.Day(from), domain.Day(to)

	r.mu.RLock()
	out := make([]domain.DailyStatistic, 0)
	for _, stat := range r.days {
		if stat.Date.Before(from) || stat.Date.After(to) {
			continue
		}
		out = append(out, *stat)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *statisticsRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	before = domain.Day(before)

	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for key, stat := range r.days {
		if stat.Date.Before(before) {
			delete(r.days, key)
			deleted++
		}
	}
	return deleted, nil
}
