package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlight() *Flight {
	f := &Flight{
		ID:        "f-1",
		SessionID: "abc12345",
		UserID:    "pilot",
		Callsign:  " finn12 ",
		Departure: "efkt",
		CreatedAt: time.Now().UTC(),
	}
	f.Normalize()
	return f
}

func TestFlight_Normalize(t *testing.T) {
	f := newFlight()
	assert.Equal(t, "FINN12", f.Callsign)
	assert.Equal(t, "EFKT", f.Departure)
	assert.Equal(t, DefaultFlightStatus, f.Status)
	assert.NoError(t, f.Validate())

	f.Callsign = ""
	assert.ErrorIs(t, f.Validate(), ErrInvalidInput)
}

func TestFlight_Apply(t *testing.T) {
	f := newFlight()
	created := f.CreatedAt

	require.NoError(t, f.Apply(FlightPatch{"clearedFL": "FL060", "clearance": true, "stand": "4"}))
	assert.Equal(t, "FL060", f.ClearedFL)
	assert.True(t, f.Clearance)
	assert.Equal(t, "4", f.Stand)
	assert.Equal(t, "FINN12", f.Callsign)
	assert.Equal(t, "abc12345", f.SessionID)
	assert.True(t, f.CreatedAt.Equal(created))

	assert.ErrorIs(t, f.Apply(FlightPatch{"sessionId": "zzz99999"}), ErrInvalidField)
	assert.ErrorIs(t, f.Apply(FlightPatch{"callsign": ""}), ErrInvalidInput)
	assert.ErrorIs(t, f.Apply(FlightPatch{"clearance": "yes"}), ErrInvalidInput)
	assert.Equal(t, "abc12345", f.SessionID)
}
