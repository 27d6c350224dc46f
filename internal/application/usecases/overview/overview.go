package overview

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/presence"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"go.uber.org/zap"
)

// Roster lists the controllers currently connected to a session.
type Roster interface {
	Controllers(sessionID string) []presence.Controller
}

type SessionSummary struct {
	SessionID    string                `json:"sessionId"`
	AirportICAO  string                `json:"airportIcao"`
	ActiveRunway string                `json:"activeRunway"`
	CustomName   string                `json:"customName,omitempty"`
	Controllers  []presence.Controller `json:"controllers"`
	FlightCount  int64                 `json:"flightCount"`
	ATIS         *domain.ATIS          `json:"atis,omitempty"`
	CreatedAt    time.Time             `json:"createdAt"`
}

type Snapshot struct {
	Sessions          []SessionSummary `json:"activeSessions"`
	TotalSessions     int              `json:"totalActiveSessions"`
	TotalFlights      int64            `json:"totalFlights"`
	ActiveControllers int              `json:"activeControllers"`
	GeneratedAt       time.Time        `json:"lastUpdated"`
}

type OverviewUseCase interface {
	Build(ctx context.Context) (*Snapshot, error)
}

type overviewUseCase struct {
	sessions domain.SessionRepository
	flights  domain.FlightRepository
	roster   Roster
	logger   *zap.Logger
}

func NewOverviewUseCase(
	sessions domain.SessionRepository,
	flights domain.FlightRepository,
	roster Roster,
	logger *zap.Logger,
) OverviewUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &overviewUseCase{
		sessions: sessions,
		flights:  flights,
		roster:   roster,
		logger:   logger,
	}
}

// Build summarizes every public (isPFATC) session. It only reads: a session
// whose partition was never provisioned counts zero flights.
func (uc *overviewUseCase) Build(ctx context.Context) (*Snapshot, error) {
	all, err := uc.sessions.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	snap := &Snapshot{
		Sessions:    make([]SessionSummary, 0),
		GeneratedAt: time.Now().UTC(),
	}
	controllers := map[string]struct{}{}

	for _, s := range all {
		if !s.IsPFATC {
			continue
		}

		summary := SessionSummary{
			SessionID:    s.ID,
			AirportICAO:  s.AirportICAO,
			ActiveRunway: s.ActiveRunway,
			CustomName:   s.CustomName,
			Controllers:  []presence.Controller{},
			ATIS:         s.ATIS,
			CreatedAt:    s.CreatedAt,
		}
		if uc.roster != nil {
			summary.Controllers = uc.roster.Controllers(s.ID)
		}
		for _, c := range summary.Controllers {
			controllers[c.UserID] = struct{}{}
		}

		if count, err := uc.flights.Count(ctx, s.ID); err != nil {
			uc.logger.Warn("failed to count flights", zap.String("sessionID", s.ID), zap.Error(err))
		} else {
			summary.FlightCount = count
		}

		snap.TotalFlights += summary.FlightCount
		snap.Sessions = append(snap.Sessions, summary)
	}

	sort.Slice(snap.Sessions, func(i, j int) bool {
		if snap.Sessions[i].AirportICAO != snap.Sessions[j].AirportICAO {
			return snap.Sessions[i].AirportICAO < snap.Sessions[j].AirportICAO
		}
		return snap.Sessions[i].CreatedAt.Before(snap.Sessions[j].CreatedAt)
	})
	snap.TotalSessions = len(snap.Sessions)
	snap.ActiveControllers = len(controllers)
	return snap, nil
}
