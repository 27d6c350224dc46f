package realtime

import (
	"errors"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/validate"
)

// describe turns err into the text sent to the client. internal is true
// when the error is not one the client caused.
func describe(err error) (message string, internal bool) {
	var limit *domain.SessionLimitError
	var invalid *validate.Error

	switch {
	case errors.As(err, &limit):
		return limit.Error(), false
	case errors.As(err, &invalid):
		return invalid.Error(), false
	case errors.Is(err, domain.ErrSessionNotFound):
		return "Session not found", false
	case errors.Is(err, domain.ErrFlightNotFound):
		return "Flight not found", false
	case errors.Is(err, domain.ErrMessageNotFound):
		return "Message not found", false
	case errors.Is(err, domain.ErrNotMessageOwner):
		return "You can only delete your own messages", false
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrInvalidAccessID):
		return "Not allowed", false
	case errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrMessageTooLong),
		errors.Is(err, domain.ErrInvalidField),
		errors.Is(err, domain.ErrInvalidAirport),
		errors.Is(err, domain.ErrInvalidSessionID),
		errors.Is(err, domain.ErrInvalidInput):
		return err.Error(), false
	default:
		return "Internal server error", true
	}
}
