package overview

import (
	"context"
	"strings"
	"testing"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/presence"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_OnlyPublicSessions(t *testing.T) {
	ctx := context.Background()
	codec, err := crypto.NewCodec("test-secret-key-with-enough-bytes", nil)
	require.NoError(t, err)

	sessions := repository.NewSessionRepository(codec)
	store := repository.NewPartitionStore()
	flights := repository.NewFlightRepository(store, codec)
	tracker := presence.NewTracker(presence.Options{}, nil)

	add := func(id, icao string, public bool) {
		s, err := domain.NewSession(id, strings.Repeat("a", 64), "owner", icao, "34", public)
		require.NoError(t, err)
		s.ATIS = &domain.ATIS{Letter: "D", Text: icao + " INFO D"}
		require.NoError(t, sessions.Create(ctx, s))
	}
	add("aaaa1111", "EFKT", true)
	add("bbbb2222", "EFHK", true)
	add("cccc3333", "EGLL", false)

	require.NoError(t, store.EnsurePartition(ctx, "aaaa1111"))
	require.NoError(t, flights.Create(ctx, &domain.Flight{SessionID: "aaaa1111", Callsign: "FIN1"}))
	require.NoError(t, flights.Create(ctx, &domain.Flight{SessionID: "aaaa1111", Callsign: "FIN2"}))

	tracker.AddController("aaaa1111", presence.Controller{UserID: "u1", Username: "kt_twr"})
	tracker.AddController("bbbb2222", presence.Controller{UserID: "u1", Username: "kt_twr"})
	tracker.AddController("cccc3333", presence.Controller{UserID: "u2", Username: "ll_gnd"})

	snap, err := NewOverviewUseCase(sessions, flights, tracker, nil).Build(ctx)
	require.NoError(t, err)

	require.Len(t, snap.Sessions, 2)
	assert.Equal(t, "EFHK", snap.Sessions[0].AirportICAO)
	assert.Equal(t, "EFKT", snap.Sessions[1].AirportICAO)
	assert.EqualValues(t, 2, snap.Sessions[1].FlightCount)
	assert.Zero(t, snap.Sessions[0].FlightCount)
	require.NotNil(t, snap.Sessions[1].ATIS)
	assert.Equal(t, "D", snap.Sessions[1].ATIS.Letter)
	assert.Len(t, snap.Sessions[1].Controllers, 1)

	assert.Equal(t, 2, snap.TotalSessions)
	assert.EqualValues(t, 2, snap.TotalFlights)
	assert.Equal(t, 1, snap.ActiveControllers)
}

func TestBuild_DoesNotProvisionPartitions(t *testing.T) {
	ctx := context.Background()
	codec, err := crypto.NewCodec("test-secret-key-with-enough-bytes", nil)
	require.NoError(t, err)

	sessions := repository.NewSessionRepository(codec)
	store := repository.NewPartitionStore()
	flights := repository.NewFlightRepository(store, codec)

	s, err := domain.NewSession("aaaa1111", strings.Repeat("a", 64), "owner", "EFKT", "34", true)
	require.NoError(t, err)
	require.NoError(t, sessions.Create(ctx, s))

	snap, err := NewOverviewUseCase(sessions, flights, nil, nil).Build(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Sessions, 1)
	assert.Zero(t, snap.Sessions[0].FlightCount)

	partitions, err := store.ListPartitions(ctx)
	require.NoError(t, err)
	assert.Empty(t, partitions)
}
