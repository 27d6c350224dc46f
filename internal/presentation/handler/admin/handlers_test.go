package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/audit"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/report"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/statistics"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/auth"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/repository"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var admin = &domain.User{ID: "1", Username: "root", IsAdmin: true}

type fixture struct {
	router  http.Handler
	audit   audit.AuditUseCase
	reports report.ReportUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codec, err := crypto.NewCodec("test-secret-key-with-enough-bytes", nil)
	require.NoError(t, err)

	store := repository.NewPartitionStore()
	sessions := repository.NewSessionRepository(codec)
	auditUC := audit.NewAuditUseCase(repository.NewAuditRepository(codec), 0, 0, nil, nil)
	statsUC := statistics.NewStatisticsUseCase(repository.NewStatisticsRepository(), sessions,
		repository.NewFlightRepository(store, codec), store, 0, 0, nil)
	reportUC := report.NewReportUseCase(repository.NewReportRepository(codec), nil)
	h := NewHandler(auditUC, statsUC, reportUC, nil)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), admin)))
		})
	})
	r.Get("/audit-logs", h.ListAuditLogsHandler)
	r.Get("/audit-logs/{id}", h.GetAuditLogHandler)
	r.Get("/statistics", h.GetStatisticsHandler)
	r.Get("/chat-reports", h.ListChatReportsHandler)
	r.Post("/chat-reports/{id}/resolve", h.ResolveChatReportHandler)
	return &fixture{router: r, audit: auditUC, reports: reportUC}
}

func (f *fixture) get(target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestAuditLogs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.True(t, f.audit.Record(ctx, &domain.AuditLogEntry{
			AdminID:    admin.ID,
			ActionType: domain.AuditSessionDeleted,
			IPAddress:  "203.0.113.7",
		}).OK())
	}
	require.True(t, f.audit.Record(ctx, &domain.AuditLogEntry{AdminID: "2", ActionType: domain.AuditSessionsListed}).OK())

	rec := f.get("/audit-logs?adminId=1&limit=2")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp auditLogsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Logs, 2)
	assert.EqualValues(t, 3, resp.Pagination.Total)
	assert.Equal(t, 2, resp.Pagination.Pages)
	assert.Equal(t, "203.0.113.7", resp.Logs[0].IPAddress)

	rec = f.get("/audit-logs/" + "1")
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusNotFound, f.get("/audit-logs/999").Code)
	assert.Equal(t, http.StatusBadRequest, f.get("/audit-logs/abc").Code)
	assert.Equal(t, http.StatusBadRequest, f.get("/audit-logs?dateFrom=yesterday").Code)
	assert.Equal(t, http.StatusBadRequest, f.get("/audit-logs?dateFrom=2025-02-01&dateTo=2025-01-01").Code)
}

func TestDateParam(t *testing.T) {
	from, err := dateParam("2025-03-01", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *from)

	to, err := dateParam("2025-03-01", true)
	require.NoError(t, err)
	assert.Equal(t, 2025, to.Year())
	assert.Equal(t, 23, to.Hour())

	none, err := dateParam("", true)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestStatistics(t *testing.T) {
	f := newFixture(t)

	rec := f.get("/statistics?days=7")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp statisticsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp.Days)

	for query, want := range map[string]int{"days=0": 30, "days=-4": 30, "days=9999": 365, "": 30} {
		rec := f.get("/statistics?" + query)
		require.Equal(t, http.StatusOK, rec.Code, query)
		var clamped statisticsResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &clamped))
		assert.Equal(t, want, clamped.Days, query)
	}

	assert.Equal(t, http.StatusBadRequest, f.get("/statistics?days=week").Code)
}

func TestChatReports(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.reports.File(ctx, &domain.ChatReport{
		MessageID:  "m1",
		Scope:      domain.ReportScopeGlobal,
		UserID:     "42",
		Message:    "bad words",
		Reason:     "Hate speech",
		ReportedBy: domain.AutomodReporter,
	}))

	rec := f.get("/chat-reports?status=pending")
	require.Equal(t, http.StatusOK, rec.Code)
	var reports []domain.ChatReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "bad words", reports[0].Message)

	resolve := httptest.NewRecorder()
	f.router.ServeHTTP(resolve, httptest.NewRequest(http.MethodPost, "/chat-reports/"+reports[0].ID+"/resolve", nil))
	assert.Equal(t, http.StatusOK, resolve.Code)

	rec = f.get("/chat-reports?status=pending")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reports))
	assert.Empty(t, reports)

	assert.Equal(t, http.StatusBadRequest, f.get("/chat-reports?status=weird").Code)
}
