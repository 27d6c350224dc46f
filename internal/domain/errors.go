package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidSessionID = errors.New("invalid session id")
	ErrInvalidAirport   = errors.New("airport must be a 4 letter ICAO code")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionExists    = errors.New("session already exists")
	ErrInvalidAccessID  = errors.New("invalid access id")
	ErrForbidden        = errors.New("forbidden")

	ErrSessionLimitReached = errors.New("session limit reached")

	ErrFlightNotFound = errors.New("flight not found")
	ErrInvalidField   = errors.New("field cannot be updated")

	ErrMessageNotFound = errors.New("message not found")
	ErrNotMessageOwner = errors.New("unauthorized: you can only delete your own messages")
	ErrMessageTooLong  = fmt.Errorf("message exceeds %d characters", MaxMessageLength)
	ErrEmptyMessage    = errors.New("message cannot be empty")

	ErrAuditLogNotFound = errors.New("audit log not found")
	ErrReportNotFound   = errors.New("report not found")
)

// SessionLimitError is returned when a user already owns the maximum number
// of sessions. OldestSessionID lets the caller offer to delete it.
type SessionLimitError struct {
	Limit           int
	OldestSessionID string
}

func (e *SessionLimitError) Error() string {
	return fmt.Sprintf("session limit reached: maximum of %d sessions", e.Limit)
}

func (e *SessionLimitError) Unwrap() error {
	return ErrSessionLimitReached
}
