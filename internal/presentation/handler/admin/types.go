package admin

import "github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"

type auditLogsResponse struct {
	Logs       []*domain.AuditLogEntry `json:"logs"`
	Pagination domain.Pagination       `json:"pagination"`
}

type statisticsResponse struct {
	Days  int                     `json:"days"`
	Daily []domain.DailyStatistic `json:"daily"`
	Total totals                  `json:"totals"`
}

type totals struct {
	Logins      int64 `json:"logins"`
	NewSessions int64 `json:"newSessions"`
	NewFlights  int64 `json:"newFlights"`
	NewUsers    int64 `json:"newUsers"`
}

type messageResponse struct {
	Message string `json:"message"`
}
