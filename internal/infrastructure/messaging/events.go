package messaging

import "github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"

const (
	ReportsQueue    = "chat_reports"
	DeadLetterQueue = "dead_letter_queue"
)

type SessionEventData struct {
	SessionID   string `json:"sessionId"`
	AirportICAO string `json:"airportIcao"`
	CreatedBy   string `json:"createdBy"`
	IsPFATC     bool   `json:"isPFATC"`
}

type ReportEventData struct {
	Report domain.ChatReport `json:"report"`
}

func NewSessionEventData(s *domain.Session) SessionEventData {
	return SessionEventData{
		SessionID:   s.ID,
		AirportICAO: s.AirportICAO,
		CreatedBy:   s.CreatedBy,
		IsPFATC:     s.IsPFATC,
	}
}
