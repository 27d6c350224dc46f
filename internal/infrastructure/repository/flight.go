package repository

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/google/uuid"
)

// storedFlight mirrors the at-rest document: only the callsign and owner
// stay readable, the strip itself is sealed.
type storedFlight struct {
	id        string
	callsign  string
	userID    string
	payload   *crypto.Envelope
	createdAt time.Time
	updatedAt time.Time
}

type flightRepository struct {
	store *PartitionStore
	codec *crypto.Codec
}

func NewFlightRepository(store *PartitionStore, codec *crypto.Codec) domain.FlightRepository {
	return &flightRepository{store: store, codec: codec}
}

func (r *flightRepository) seal(f *domain.Flight) (*storedFlight, error) {
	env, err := r.codec.Encrypt(f)
	if err != nil {
		return nil, err
	}
	return &storedFlight{
		id:        f.ID,
		callsign:  f.Callsign,
		userID:    f.UserID,
		payload:   env,
		createdAt: f.CreatedAt,
		updatedAt: f.UpdatedAt,
	}, nil
}

func (r *flightRepository) open(sessionID string, sf *storedFlight) *domain.Flight {
	f := &domain.Flight{}
	r.codec.DecryptJSON(sf.payload, f)
	// plain columns win over whatever the payload held
	f.ID = sf.id
	f.SessionID = sessionID
	f.Callsign = sf.callsign
	f.UserID = sf.userID
	f.CreatedAt = sf.createdAt
	f.UpdatedAt = sf.updatedAt
	return f
}

func (r *flightRepository) Create(ctx context.Context, flight *domain.Flight) error {
	if flight == nil {
		return domain.ErrInvalidInput
	}
	if flight.ID == "" {
		flight.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if flight.CreatedAt.IsZero() {
		flight.CreatedAt = now
	}
	flight.UpdatedAt = now

	sf, err := r.seal(flight)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, err := r.store.flightPartition(flight.SessionID)
	if err != nil {
		return err
	}
	p[flight.ID] = sf
	return nil
}

func (r *flightRepository) GetByID(ctx context.Context, sessionID, flightID string) (*domain.Flight, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, err := r.store.flightPartition(sessionID)
	if err != nil {
		return nil, err
	}
	sf, ok := p[flightID]
	if !ok {
		return nil, domain.ErrFlightNotFound
	}
	return r.open(sessionID, sf), nil
}

func (r *flightRepository) ListBySession(ctx context.Context, sessionID string) ([]*domain.Flight, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, err := r.store.flightPartition(sessionID)
	if err != nil {
		return nil, err
	}

	flights := make([]*domain.Flight, 0, len(p))
	for _, sf := range p {
		flights = append(flights, r.open(sessionID, sf))
	}
	sort.Slice(flights, func(i, j int) bool { return flights[i].CreatedAt.Before(flights[j].CreatedAt) })
	return flights, nil
}

// Update overwrites the stored flight. Concurrent writers are last write
// wins.
func (r *flightRepository) Update(ctx context.Context, flight *domain.Flight) error {
	if flight == nil || flight.ID == "" {
		return domain.ErrInvalidInput
	}
	flight.UpdatedAt = time.Now().UTC()

	sf, err := r.seal(flight)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, err := r.store.flightPartition(flight.SessionID)
	if err != nil {
		return err
	}
	existing, ok := p[flight.ID]
	if !ok {
		return domain.ErrFlightNotFound
	}
	sf.createdAt = existing.createdAt
	sf.userID = existing.userID
	p[flight.ID] = sf
	return nil
}

func (r *flightRepository) Delete(ctx context.Context, sessionID, flightID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, err := r.store.flightPartition(sessionID)
	if err != nil {
		return err
	}
	if _, ok := p[flightID]; !ok {
		return domain.ErrFlightNotFound
	}
	delete(p, flightID)
	return nil
}

// Count reports zero for a partition that was never provisioned, like a
// count on a missing collection.
func (r *flightRepository) Count(ctx context.Context, sessionID string) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, err := r.store.flightPartition(sessionID)
	if errors.Is(err, ErrPartitionMissing) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int64(len(p)), nil
}

func (r *flightRepository) CountByDay(ctx context.Context, sessionID string, since time.Time) (map[string]int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	p, err := r.store.flightPartition(sessionID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	for _, sf := range p {
		if sf.createdAt.Before(since) {
			continue
		}
		counts[domain.Day(sf.createdAt).Format(domain.DateLayout)]++
	}
	return counts, nil
}
