package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type statisticsRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewStatisticsRepository(db *gorm.DB, logger *zap.Logger) domain.StatisticsRepository {
	return &statisticsRepository{db: db, logger: logger}
}

// Increment relies on StatCounter.Valid as the column whitelist.
func (r *statisticsRepository) Increment(ctx context.Context, date time.Time, counter domain.StatCounter) (err error) {
	ctx, span := startSpan(ctx, "statistics.increment")
	defer func() { endSpan(span, err) }()

	if !counter.Valid() {
		return domain.ErrInvalidInput
	}
	column := string(counter)

	now := time.Now().UTC()
	row := map[string]any{"date": domain.Day(date), column: 1, "updated_at": now}
	result := r.db.WithContext(ctx).
		Model(&dailyStatisticModel{}).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}},
			DoUpdates: clause.Assignments(map[string]any{
				column:       gorm.Expr(fmt.Sprintf("daily_statistics.%s + 1", column)),
				"updated_at": now,
			}),
		}).
		Create(row)
	if result.Error != nil {
		return fmt.Errorf("failed to increment %s: %w", column, result.Error)
	}
	return nil
}

func (r *statisticsRepository) Upsert(ctx context.Context, stat domain.DailyStatistic) error {
	model := dailyStatisticModel{
		Date:             domain.Day(stat.Date),
		LoginsCount:      stat.Logins,
		NewSessionsCount: stat.NewSessions,
		NewFlightsCount:  stat.NewFlights,
		NewUsersCount:    stat.NewUsers,
		UpdatedAt:        time.Now().UTC(),
	}

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				string(domain.StatLogins),
				string(domain.StatNewSessions),
				string(domain.StatNewFlights),
				string(domain.StatNewUsers),
				"updated_at",
			}),
		}).
		Create(&model)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert statistics: %w", result.Error)
	}
	return nil
}

func (r *statisticsRepository) Range(ctx context.Context, from, to time.Time) ([]domain.DailyStatistic, error) {
	var models []dailyStatisticModel
	if err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", domain.Day(from), domain.Day(to)).
		Order("date ASC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to read statistics: %w", err)
	}

	out := make([]domain.DailyStatistic, 0, len(models))
	for _, m := range models {
		out = append(out, domain.DailyStatistic{
			Date:        domain.Day(m.Date),
			Logins:      m.LoginsCount,
			NewSessions: m.NewSessionsCount,
			NewFlights:  m.NewFlightsCount,
			NewUsers:    m.NewUsersCount,
		})
	}
	return out, nil
}

func (r *statisticsRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("date < ?", domain.Day(before)).Delete(&dailyStatisticModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete statistics: %w", result.Error)
	}
	return result.RowsAffected, nil
}
