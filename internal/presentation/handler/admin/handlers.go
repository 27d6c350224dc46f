package admin

import (
	"net/http"
	"strconv"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/audit"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/report"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/statistics"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/auth"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/json"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/utils"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	audit      audit.AuditUseCase
	statistics statistics.StatisticsUseCase
	reports    report.ReportUseCase
	logger     *zap.Logger
}

func NewHandler(
	auditUseCase audit.AuditUseCase,
	statisticsUseCase statistics.StatisticsUseCase,
	reports report.ReportUseCase,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		audit:      auditUseCase,
		statistics: statisticsUseCase,
		reports:    reports,
		logger:     logger,
	}
}

func (h *Handler) ListAuditLogsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := domain.AuditQuery{
		AdminID:      q.Get("adminId"),
		ActionType:   q.Get("actionType"),
		TargetUserID: q.Get("targetUserId"),
	}

	var err error
	if query.Page, err = intParam(q.Get("page"), 1); err != nil {
		json.WriteBadRequestError(w, "page must be a number")
		return
	}
	if query.Limit, err = intParam(q.Get("limit"), domain.DefaultPageSize); err != nil {
		json.WriteBadRequestError(w, "limit must be a number")
		return
	}
	if query.DateFrom, err = dateParam(q.Get("dateFrom"), false); err != nil {
		json.WriteBadRequestError(w, "dateFrom must be a date or RFC 3339 timestamp")
		return
	}
	if query.DateTo, err = dateParam(q.Get("dateTo"), true); err != nil {
		json.WriteBadRequestError(w, "dateTo must be a date or RFC 3339 timestamp")
		return
	}

	logs, pagination, err := h.audit.Query(r.Context(), query)
	if err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, auditLogsResponse{Logs: logs, Pagination: pagination})
}

func (h *Handler) GetAuditLogHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		json.WriteBadRequestError(w, "Invalid audit log id")
		return
	}

	entry, err := h.audit.Get(r.Context(), id)
	if err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, entry)
}

func (h *Handler) GetStatisticsHandler(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r.URL.Query().Get("days"), statistics.DefaultDays)
	if err != nil {
		json.WriteBadRequestError(w, "days must be a number")
		return
	}
	days = statistics.ClampDays(days)

	daily, err := h.statistics.Range(r.Context(), days)
	if err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}

	resp := statisticsResponse{Days: days, Daily: daily}
	for _, d := range daily {
		resp.Total.Logins += d.Logins
		resp.Total.NewSessions += d.NewSessions
		resp.Total.NewFlights += d.NewFlights
		resp.Total.NewUsers += d.NewUsers
	}
	json.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListChatReportsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"), 0)
	if err != nil {
		json.WriteBadRequestError(w, "limit must be a number")
		return
	}

	reports, err := h.reports.List(r.Context(), domain.ReportStatus(r.URL.Query().Get("status")), limit)
	if err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, reports)
}

func (h *Handler) ResolveChatReportHandler(w http.ResponseWriter, r *http.Request) {
	admin, _ := auth.UserFromContext(r.Context())

	if err := h.reports.Resolve(r.Context(), chi.URLParam(r, "id"), admin); err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, messageResponse{Message: "Report resolved"})
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// dateParam accepts YYYY-MM-DD or RFC 3339. A bare date used as an upper
// bound covers the whole day.
func dateParam(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}
