package domain

import (
	"context"
	"time"
)

type StatCounter string

const (
	StatLogins      StatCounter = "logins_count"
	StatNewSessions StatCounter = "new_sessions_count"
	StatNewFlights  StatCounter = "new_flights_count"
	StatNewUsers    StatCounter = "new_users_count"
)

func (c StatCounter) Valid() bool {
	switch c {
	case StatLogins, StatNewSessions, StatNewFlights, StatNewUsers:
		return true
	}
	return false
}

const DateLayout = "2006-01-02"

type DailyStatistic struct {
	Date        time.Time `json:"date"`
	Logins      int64     `json:"logins"`
	NewSessions int64     `json:"newSessions"`
	NewFlights  int64     `json:"newFlights"`
	NewUsers    int64     `json:"newUsers"`
}

type StatisticsRepository interface {
	// Increment upserts the row for date and adds one to counter.
	Increment(ctx context.Context, date time.Time, counter StatCounter) error
	Upsert(ctx context.Context, stat DailyStatistic) error
	Range(ctx context.Context, from, to time.Time) ([]DailyStatistic, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// Day truncates t to its UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
