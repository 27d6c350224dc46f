package utils

import (
	"errors"
	"net/http"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/json"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/validate"
	"go.uber.org/zap"
)

type sessionLimitResponse struct {
	Error           string `json:"error"`
	Message         string `json:"message"`
	Limit           int    `json:"limit"`
	OldestSessionID string `json:"oldestSessionId,omitempty"`
}

// WriteDomainError maps a use case error to its HTTP status. Anything not
// recognised is logged and answered with 500.
func WriteDomainError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var invalid *validate.Error
	var limit *domain.SessionLimitError

	switch {
	case errors.As(err, &invalid):
		json.WriteValidationError(w, invalid, invalid.Fields)
	case errors.As(err, &limit):
		json.WriteJSON(w, http.StatusConflict, sessionLimitResponse{
			Error:           http.StatusText(http.StatusConflict),
			Message:         limit.Error(),
			Limit:           limit.Limit,
			OldestSessionID: limit.OldestSessionID,
		})
	case errors.Is(err, domain.ErrSessionNotFound):
		json.WriteNotFoundError(w, "Session not found")
	case errors.Is(err, domain.ErrFlightNotFound):
		json.WriteNotFoundError(w, "Flight not found")
	case errors.Is(err, domain.ErrMessageNotFound):
		json.WriteNotFoundError(w, "Message not found")
	case errors.Is(err, domain.ErrAuditLogNotFound):
		json.WriteNotFoundError(w, "Audit log not found")
	case errors.Is(err, domain.ErrReportNotFound):
		json.WriteNotFoundError(w, "Report not found")
	case errors.Is(err, domain.ErrInvalidAccessID):
		json.WriteForbiddenError(w, "Invalid access id")
	case errors.Is(err, domain.ErrForbidden):
		json.WriteForbiddenError(w, "You do not have access to this resource")
	case errors.Is(err, domain.ErrNotMessageOwner):
		json.WriteForbiddenError(w, "You can only delete your own messages")
	case errors.Is(err, domain.ErrSessionExists):
		json.WriteError(w, http.StatusConflict, err, "Session already exists")
	case errors.Is(err, domain.ErrInvalidSessionID),
		errors.Is(err, domain.ErrInvalidAirport),
		errors.Is(err, domain.ErrInvalidField),
		errors.Is(err, domain.ErrEmptyMessage),
		errors.Is(err, domain.ErrMessageTooLong),
		errors.Is(err, domain.ErrInvalidInput):
		json.WriteBadRequestError(w, err.Error())
	default:
		json.WriteInternalError(w, logger, err)
	}
}
