package flight

import (
	"context"
	"strings"
	"testing"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingStats struct{ n int }

func (s *countingStats) Increment(context.Context, domain.StatCounter) error {
	s.n++
	return nil
}

type fixture struct {
	uc      FlightUseCase
	store   *repository.PartitionStore
	stats   *countingStats
	session *domain.Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codec, err := crypto.NewCodec("test-secret-key-with-enough-bytes", nil)
	require.NoError(t, err)

	sessions := repository.NewSessionRepository(codec)
	store := repository.NewPartitionStore()
	s, err := domain.NewSession("abc12345", strings.Repeat("a", 64), "owner", "EFKT", "34", true)
	require.NoError(t, err)
	require.NoError(t, sessions.Create(context.Background(), s))

	stats := &countingStats{}
	return &fixture{
		uc:      NewFlightUseCase(sessions, repository.NewFlightRepository(store, codec), store, stats, nil),
		store:   store,
		stats:   stats,
		session: s,
	}
}

func TestAdd_ProvisionsFreshPartition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pilot := domain.NewMember(&domain.User{ID: "pilot"}, "")

	// no partition exists yet
	ids, err := f.store.ListPartitions(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	added, err := f.uc.Add(ctx, "abc12345", pilot, &domain.Flight{
		ID:        "client-chosen",
		SessionID: "zzz99999",
		Callsign:  "fin3ab",
		Departure: "efkt",
		Arrival:   "efhk",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "client-chosen", added.ID)
	assert.Equal(t, "abc12345", added.SessionID)
	assert.Equal(t, "pilot", added.UserID)
	assert.Equal(t, "FIN3AB", added.Callsign)
	assert.Equal(t, domain.DefaultFlightStatus, added.Status)
	assert.Equal(t, 1, f.stats.n)

	_, err = f.uc.Add(ctx, "abc12345", pilot, &domain.Flight{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.uc.Add(ctx, "nope9999", pilot, &domain.Flight{Callsign: "X"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestUpdateAndDelete_RequireControl(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pilot := domain.NewMember(&domain.User{ID: "pilot"}, "")
	controller := domain.NewMember(&domain.User{ID: "atc"}, f.session.AccessID)

	added, err := f.uc.Add(ctx, "abc12345", pilot, &domain.Flight{Callsign: "FIN1"})
	require.NoError(t, err)

	_, err = f.uc.Update(ctx, "abc12345", added.ID, pilot, domain.FlightPatch{"stand": "12"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := f.uc.Update(ctx, "abc12345", added.ID, controller, domain.FlightPatch{"stand": "12", "status": "TAXI"})
	require.NoError(t, err)
	assert.Equal(t, "12", updated.Stand)
	assert.Equal(t, "TAXI", updated.Status)
	assert.Equal(t, "pilot", updated.UserID)

	// last write wins
	_, err = f.uc.Update(ctx, "abc12345", added.ID, controller, domain.FlightPatch{"stand": "14"})
	require.NoError(t, err)
	got, err := f.uc.Get(ctx, "abc12345", added.ID)
	require.NoError(t, err)
	assert.Equal(t, "14", got.Stand)

	pdc, err := f.uc.IssuePDC(ctx, "abc12345", added.ID, controller, "CLRD TO EFHK VIA KIT1A")
	require.NoError(t, err)
	assert.True(t, pdc.Clearance)
	assert.Equal(t, "CLRD TO EFHK VIA KIT1A", pdc.PDCRemarks)

	assert.ErrorIs(t, f.uc.Delete(ctx, "abc12345", added.ID, pilot), domain.ErrForbidden)
	require.NoError(t, f.uc.Delete(ctx, "abc12345", added.ID, controller))
	assert.ErrorIs(t, f.uc.Delete(ctx, "abc12345", added.ID, controller), domain.ErrFlightNotFound)
}

func TestList_PilotsSeeOwnFlights(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := domain.NewMember(&domain.User{ID: "alice"}, "")
	bob := domain.NewMember(&domain.User{ID: "bob"}, "")
	owner := domain.NewMember(&domain.User{ID: "owner"}, "")

	_, err := f.uc.Add(ctx, "abc12345", alice, &domain.Flight{Callsign: "A1"})
	require.NoError(t, err)
	_, err = f.uc.Add(ctx, "abc12345", bob, &domain.Flight{Callsign: "B1"})
	require.NoError(t, err)

	all, err := f.uc.List(ctx, "abc12345", owner)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := f.uc.List(ctx, "abc12345", alice)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "A1", own[0].Callsign)

	anon, err := f.uc.List(ctx, "abc12345", domain.NewMember(nil, ""))
	require.NoError(t, err)
	assert.Empty(t, anon)
}

func TestRequestPDC_PilotsOnlyForOwnFlights(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := domain.NewMember(&domain.User{ID: "alice"}, "")
	bob := domain.NewMember(&domain.User{ID: "bob"}, "")
	anonymous := domain.NewMember(nil, "")
	controller := domain.NewMember(&domain.User{ID: "owner"}, "")

	added, err := f.uc.Add(ctx, "abc12345", alice, &domain.Flight{Callsign: "A1"})
	require.NoError(t, err)

	got, err := f.uc.RequestPDC(ctx, "abc12345", added.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, "A1", got.Callsign)

	_, err = f.uc.RequestPDC(ctx, "abc12345", added.ID, bob)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.uc.RequestPDC(ctx, "abc12345", added.ID, anonymous)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.uc.RequestPDC(ctx, "abc12345", added.ID, controller)
	require.NoError(t, err)
	_, err = f.uc.RequestPDC(ctx, "abc12345", "missing", alice)
	assert.ErrorIs(t, err, domain.ErrFlightNotFound)
}
