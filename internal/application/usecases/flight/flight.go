package flight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/nonfatal"
	"go.uber.org/zap"
)

const maxPDCLength = 1000

// StatsRecorder bumps a daily counter.
type StatsRecorder interface {
	Increment(ctx context.Context, counter domain.StatCounter) error
}

type FlightUseCase interface {
	Add(ctx context.Context, sessionID string, member *domain.Member, flight *domain.Flight) (*domain.Flight, error)
	Update(ctx context.Context, sessionID, flightID string, member *domain.Member, patch domain.FlightPatch) (*domain.Flight, error)
	Delete(ctx context.Context, sessionID, flightID string, member *domain.Member) error
	Get(ctx context.Context, sessionID, flightID string) (*domain.Flight, error)
	List(ctx context.Context, sessionID string, member *domain.Member) ([]*domain.Flight, error)
	IssuePDC(ctx context.Context, sessionID, flightID string, member *domain.Member, pdc string) (*domain.Flight, error)
	RequestPDC(ctx context.Context, sessionID, flightID string, member *domain.Member) (*domain.Flight, error)
}

type flightUseCase struct {
	sessions   domain.SessionRepository
	flights    domain.FlightRepository
	partitions domain.PartitionProvisioner
	stats      StatsRecorder
	logger     *zap.Logger
}

func NewFlightUseCase(
	sessions domain.SessionRepository,
	flights domain.FlightRepository,
	partitions domain.PartitionProvisioner,
	stats StatsRecorder,
	logger *zap.Logger,
) FlightUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &flightUseCase{
		sessions:   sessions,
		flights:    flights,
		partitions: partitions,
		stats:      stats,
		logger:     logger,
	}
}

// prepare loads the session and provisions its partitions.
func (uc *flightUseCase) prepare(ctx context.Context, sessionID string) (*domain.Session, error) {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return nil, err
	}
	session, err := uc.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := uc.partitions.EnsurePartition(ctx, sessionID); err != nil {
		uc.logger.Error("failed to ensure partition", zap.Error(err), zap.String("sessionID", sessionID))
		return nil, fmt.Errorf("failed to prepare session storage: %w", err)
	}
	return session, nil
}

// Add stores a new strip. Anyone who reached the session may file a flight;
// controllers may file on behalf of pilots.
func (uc *flightUseCase) Add(ctx context.Context, sessionID string, member *domain.Member, flight *domain.Flight) (*domain.Flight, error) {
	if flight == nil {
		return nil, domain.ErrInvalidInput
	}
	if _, err := uc.prepare(ctx, sessionID); err != nil {
		return nil, err
	}

	f := *flight
	f.ID = ""
	f.SessionID = sessionID
	f.UserID = member.UserID()
	f.CreatedAt, f.UpdatedAt = time.Time{}, time.Time{}
	f.Normalize()
	if err := f.Validate(); err != nil {
		return nil, err
	}

	if err := uc.flights.Create(ctx, &f); err != nil {
		uc.logger.Error("failed to add flight", zap.Error(err), zap.String("sessionID", sessionID))
		return nil, fmt.Errorf("failed to add flight: %w", err)
	}

	if uc.stats != nil {
		nonfatal.From("increment new flights", uc.stats.Increment(ctx, domain.StatNewFlights)).Log(uc.logger)
	}

	uc.logger.Info("flight added",
		zap.String("sessionID", sessionID),
		zap.String("flightID", f.ID),
		zap.String("callsign", f.Callsign))

	return &f, nil
}

func (uc *flightUseCase) Update(ctx context.Context, sessionID, flightID string, member *domain.Member, patch domain.FlightPatch) (*domain.Flight, error) {
	if flightID == "" || len(patch) == 0 {
		return nil, domain.ErrInvalidInput
	}
	session, err := uc.prepare(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !member.CanControl(session) {
		return nil, domain.ErrForbidden
	}

	f, err := uc.flights.GetByID(ctx, sessionID, flightID)
	if err != nil {
		return nil, err
	}
	if err := f.Apply(patch); err != nil {
		return nil, err
	}

	if err := uc.flights.Update(ctx, f); err != nil {
		uc.logger.Error("failed to update flight", zap.Error(err), zap.String("flightID", flightID))
		return nil, fmt.Errorf("failed to update flight: %w", err)
	}
	return f, nil
}

func (uc *flightUseCase) Delete(ctx context.Context, sessionID, flightID string, member *domain.Member) error {
	if flightID == "" {
		return domain.ErrInvalidInput
	}
	session, err := uc.prepare(ctx, sessionID)
	if err != nil {
		return err
	}
	if !member.CanControl(session) {
		return domain.ErrForbidden
	}

	if err := uc.flights.Delete(ctx, sessionID, flightID); err != nil {
		return err
	}

	uc.logger.Info("flight deleted",
		zap.String("sessionID", sessionID),
		zap.String("flightID", flightID),
		zap.String("userID", member.UserID()))
	return nil
}

func (uc *flightUseCase) Get(ctx context.Context, sessionID, flightID string) (*domain.Flight, error) {
	if _, err := uc.prepare(ctx, sessionID); err != nil {
		return nil, err
	}
	return uc.flights.GetByID(ctx, sessionID, flightID)
}

// List returns every strip to controllers and only their own flights to
// everyone else.
func (uc *flightUseCase) List(ctx context.Context, sessionID string, member *domain.Member) ([]*domain.Flight, error) {
	session, err := uc.prepare(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	flights, err := uc.flights.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list flights: %w", err)
	}
	if member.CanControl(session) {
		return flights, nil
	}

	userID := member.UserID()
	own := make([]*domain.Flight, 0)
	for _, f := range flights {
		if userID != "" && f.UserID == userID {
			own = append(own, f)
		}
	}
	return own, nil
}

// RequestPDC resolves the strip a clearance is asked for. Pilots may only
// ask for their own flights.
func (uc *flightUseCase) RequestPDC(ctx context.Context, sessionID, flightID string, member *domain.Member) (*domain.Flight, error) {
	session, err := uc.prepare(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	f, err := uc.flights.GetByID(ctx, sessionID, flightID)
	if err != nil {
		return nil, err
	}
	if !member.CanControl(session) && (member.UserID() == "" || f.UserID != member.UserID()) {
		return nil, domain.ErrForbidden
	}
	return f, nil
}

// IssuePDC stores the clearance text on the strip and marks it cleared.
func (uc *flightUseCase) IssuePDC(ctx context.Context, sessionID, flightID string, member *domain.Member, pdc string) (*domain.Flight, error) {
	pdc = strings.TrimSpace(pdc)
	if pdc == "" || len(pdc) > maxPDCLength {
		return nil, domain.ErrInvalidInput
	}
	return uc.Update(ctx, sessionID, flightID, member, domain.FlightPatch{
		"pdcRemarks": pdc,
		"clearance":  true,
	})
}
