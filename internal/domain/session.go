package domain

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

const (
	sessionIDLength   = 8
	sessionIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	accessIDBytes     = 32

	MaxCustomNameLength = 50
)

var (
	sessionIDPattern = regexp.MustCompile(`^[a-z0-9]{8}$`)
	icaoPattern      = regexp.MustCompile(`^[A-Z0-9]{4}$`)
)

type ATIS struct {
	Letter    string    `json:"letter"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type Session struct {
	ID           string    `json:"sessionId"`
	AccessID     string    `json:"accessId"`
	AirportICAO  string    `json:"airportIcao"`
	ActiveRunway string    `json:"activeRunway"`
	CreatedBy    string    `json:"createdBy"`
	IsPFATC      bool      `json:"isPFATC"`
	CustomName   string    `json:"customName,omitempty"`
	FlightStrips []any     `json:"flightStrips"`
	ATIS         *ATIS     `json:"atis,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SessionUpdate carries the mutable session fields; nil means unchanged.
type SessionUpdate struct {
	ActiveRunway *string `json:"activeRunway,omitempty"`
	FlightStrips []any   `json:"flightStrips,omitempty"`
	ATIS         *ATIS   `json:"atis,omitempty"`
	IsPFATC      *bool   `json:"isPFATC,omitempty"`
}

type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetByID(ctx context.Context, id string) (*Session, error)
	GetByUser(ctx context.Context, userID string) ([]*Session, error)
	Update(ctx context.Context, session *Session) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]*Session, error)
	Exists(ctx context.Context, id string) (bool, error)
	CountByDay(ctx context.Context, since time.Time) (map[string]int64, error)
}

func NewSession(id, accessID string, createdBy string, airport, runway string, isPFATC bool) (*Session, error) {
	if err := ValidateSessionID(id); err != nil {
		return nil, err
	}
	if accessID == "" || createdBy == "" {
		return nil, ErrInvalidInput
	}

	icao := NormalizeICAO(airport)
	if !icaoPattern.MatchString(icao) {
		return nil, ErrInvalidAirport
	}

	now := time.Now().UTC()
	return &Session{
		ID:           id,
		AccessID:     accessID,
		AirportICAO:  icao,
		ActiveRunway: strings.TrimSpace(runway),
		CreatedBy:    createdBy,
		IsPFATC:      isPFATC,
		FlightStrips: []any{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Apply merges an update into the session.
func (s *Session) Apply(upd SessionUpdate) {
	if upd.ActiveRunway != nil {
		s.ActiveRunway = strings.TrimSpace(*upd.ActiveRunway)
	}
	if upd.FlightStrips != nil {
		s.FlightStrips = upd.FlightStrips
	}
	if upd.ATIS != nil {
		atis := *upd.ATIS
		if atis.Timestamp.IsZero() {
			atis.Timestamp = time.Now().UTC()
		}
		s.ATIS = &atis
	}
	if upd.IsPFATC != nil {
		s.IsPFATC = *upd.IsPFATC
	}
	s.UpdatedAt = time.Now().UTC()
}

func (s *Session) Rename(name string) error {
	name = strings.TrimSpace(name)
	if len([]rune(name)) > MaxCustomNameLength {
		return ErrInvalidInput
	}
	s.CustomName = name
	s.UpdatedAt = time.Now().UTC()
	return nil
}

func NormalizeICAO(icao string) string {
	return strings.ToUpper(strings.TrimSpace(icao))
}

func ValidateSessionID(id string) error {
	if !sessionIDPattern.MatchString(id) {
		return ErrInvalidSessionID
	}
	return nil
}

func NewSessionID() (string, error) {
	buf := make([]byte, sessionIDLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = sessionIDAlphabet[int(b)%len(sessionIDAlphabet)]
	}
	return string(buf), nil
}

func NewAccessID() (string, error) {
	buf := make([]byte, accessIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
