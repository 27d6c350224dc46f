package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/audit"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/auth"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/configs"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/ratelimiter"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T) (*Application, audit.AuditUseCase) {
	t.Helper()
	codec, err := crypto.NewCodec("test-secret-key-with-enough-bytes", nil)
	require.NoError(t, err)

	auditUC := audit.NewAuditUseCase(repository.NewAuditRepository(codec), 0, 0, nil, nil)
	app := NewApplication(configs.Config{}, Handlers{}, nil, Limiters{}, auditUC, nil, nil)
	return app, auditUC
}

func serve(h http.Handler, user *domain.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/chat-reports/r1/resolve", nil)
	req.RemoteAddr = "198.51.100.4:5123"
	if user != nil {
		req = req.WithContext(auth.WithUser(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func status(code int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	})
}

func TestAuditMiddleware_RecordsSuccessfulAdminActions(t *testing.T) {
	app, auditUC := newTestApp(t)
	mw := app.AuditMiddleware(domain.AuditChatReportResolved)
	admin := &domain.User{ID: "1", Username: "root", IsAdmin: true}

	serve(mw(status(http.StatusOK)), admin)
	serve(mw(status(http.StatusNotFound)), admin)
	serve(mw(status(http.StatusOK)), &domain.User{ID: "2", Username: "pilot"})
	serve(mw(status(http.StatusOK)), nil)
	auditUC.Wait()

	logs, page, err := auditUC.Query(context.Background(), domain.AuditQuery{})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)
	assert.Equal(t, domain.AuditChatReportResolved, logs[0].ActionType)
	assert.Equal(t, "1", logs[0].AdminID)
	assert.Equal(t, "198.51.100.4", logs[0].IPAddress)
	assert.Equal(t, "/api/admin/chat-reports/r1/resolve", logs[0].Details["path"])
}

func TestRateLimiterMiddleware(t *testing.T) {
	app, _ := newTestApp(t)
	limiter := ratelimiter.NewInMemory(ratelimiter.Options{Name: "auth", Limit: 2, Window: time.Minute})
	t.Cleanup(limiter.Close)
	h := app.rateLimiterMiddleware("auth", limiter)(status(http.StatusOK))

	assert.Equal(t, http.StatusOK, serve(h, nil).Code)
	rec := serve(h, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = serve(h, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string) (ratelimiter.Decision, error) {
	return ratelimiter.Decision{}, errors.New("redis: connection refused")
}

func TestRateLimiterMiddleware_FailsOpen(t *testing.T) {
	app, _ := newTestApp(t)

	h := app.rateLimiterMiddleware("chat", brokenLimiter{})(status(http.StatusOK))
	assert.Equal(t, http.StatusOK, serve(h, nil).Code)

	h = app.rateLimiterMiddleware("chat", nil)(status(http.StatusOK))
	assert.Equal(t, http.StatusOK, serve(h, nil).Code)
}
