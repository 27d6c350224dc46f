package domain

import (
	"context"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

type Flight struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"sessionId"`
	UserID     string    `json:"userId,omitempty"`
	Callsign   string    `json:"callsign"`
	Aircraft   string    `json:"aircraft,omitempty"`
	WTC        string    `json:"wtc,omitempty"`
	FlightType string    `json:"flightType,omitempty"`
	Departure  string    `json:"departure,omitempty"`
	Arrival    string    `json:"arrival,omitempty"`
	Alternate  string    `json:"alternate,omitempty"`
	Route      string    `json:"route,omitempty"`
	SID        string    `json:"sid,omitempty"`
	STAR       string    `json:"star,omitempty"`
	Runway     string    `json:"runway,omitempty"`
	Stand      string    `json:"stand,omitempty"`
	Gate       string    `json:"gate,omitempty"`
	CruisingFL string    `json:"cruisingFL,omitempty"`
	ClearedFL  string    `json:"clearedFL,omitempty"`
	Squawk     string    `json:"squawk,omitempty"`
	Status     string    `json:"status,omitempty"`
	Clearance  bool      `json:"clearance"`
	Remark     string    `json:"remark,omitempty"`
	PDCRemarks string    `json:"pdcRemarks,omitempty"`
	Hidden     bool      `json:"hidden"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

const DefaultFlightStatus = "PENDING"

// FlightPatch is a partial update keyed by the JSON field name.
type FlightPatch map[string]any

// immutable fields can never be changed by a patch.
var immutableFlightFields = map[string]struct{}{
	"id":        {},
	"sessionId": {},
	"userId":    {},
	"createdAt": {},
	"updatedAt": {},
}

type FlightRepository interface {
	Create(ctx context.Context, flight *Flight) error
	GetByID(ctx context.Context, sessionID, flightID string) (*Flight, error)
	ListBySession(ctx context.Context, sessionID string) ([]*Flight, error)
	Update(ctx context.Context, flight *Flight) error
	Delete(ctx context.Context, sessionID, flightID string) error
	Count(ctx context.Context, sessionID string) (int64, error)
	CountByDay(ctx context.Context, sessionID string, since time.Time) (map[string]int64, error)
}

func (f *Flight) Normalize() {
	f.Callsign = strings.ToUpper(strings.TrimSpace(f.Callsign))
	f.Departure = NormalizeICAO(f.Departure)
	f.Arrival = NormalizeICAO(f.Arrival)
	f.Alternate = NormalizeICAO(f.Alternate)
	if f.Status == "" {
		f.Status = DefaultFlightStatus
	}
}

func (f *Flight) Validate() error {
	if f.Callsign == "" || len(f.Callsign) > 16 {
		return ErrInvalidInput
	}
	return nil
}

// Apply overlays the patch onto the flight. Unknown keys are ignored,
// immutable keys are rejected.
func (f *Flight) Apply(patch FlightPatch) error {
	for key := range patch {
		if _, ok := immutableFlightFields[key]; ok {
			return ErrInvalidField
		}
	}

	current, err := json.Marshal(f)
	if err != nil {
		return err
	}
	merged := map[string]any{}
	if err := json.Unmarshal(current, &merged); err != nil {
		return err
	}
	for key, value := range patch {
		merged[key] = value
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return err
	}

	var next Flight
	if err := json.Unmarshal(raw, &next); err != nil {
		return ErrInvalidInput
	}
	next.Normalize()
	if err := next.Validate(); err != nil {
		return err
	}

	next.UpdatedAt = time.Now().UTC()
	*f = next
	return nil
}
