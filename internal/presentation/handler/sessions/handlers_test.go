package sessions

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/session"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/auth"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/repository"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/utils"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var creator = &domain.User{ID: "100", Username: "kt_twr"}

type countingNotifier struct{ n int }

func (c *countingNotifier) Notify() { c.n++ }

func newRouter(t *testing.T) (http.Handler, *countingNotifier) {
	t.Helper()
	codec, err := crypto.NewCodec("test-secret-key-with-enough-bytes", nil)
	require.NoError(t, err)

	uc := session.NewSessionUseCase(repository.NewSessionRepository(codec), repository.NewPartitionStore(), nil, nil, session.Quota{MaxPerUser: 1}, nil)
	notifier := &countingNotifier{}
	h := NewHandler(uc, nil, notifier, nil)

	r := chi.NewRouter()
	r.Post("/create", h.CreateSessionHandler)
	r.Get("/mine", h.GetMySessionsHandler)
	r.Get("/{sessionId}", h.GetSessionHandler)
	r.Put("/{sessionId}", h.UpdateSessionHandler)
	r.Post("/update-name", h.UpdateNameHandler)
	r.Post("/delete", h.DeleteSessionHandler)
	return r, notifier
}

func do(router http.Handler, method, target, body string, user *domain.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if user != nil {
		req = req.WithContext(auth.WithUser(context.Background(), user))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, router http.Handler) *domain.Session {
	t.Helper()
	rec := do(router, http.MethodPost, "/create", `{"airportIcao":"efkt","activeRunway":"34","isPFATC":true}`, creator)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var s domain.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	return &s
}

func TestCreateSession(t *testing.T) {
	router, notifier := newRouter(t)

	s := createSession(t, router)
	assert.Equal(t, "EFKT", s.AirportICAO)
	assert.Len(t, s.AccessID, 64)
	assert.Equal(t, 1, notifier.n)

	rec := do(router, http.MethodPost, "/create", `{"airportIcao":"efhk"}`, creator)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), s.ID)
}

func TestCreateSession_SetsAccessCookie(t *testing.T) {
	router, _ := newRouter(t)

	rec := do(router, http.MethodPost, "/create", `{"airportIcao":"efkt"}`, creator)
	require.Equal(t, http.StatusCreated, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, strings.HasPrefix(cookies[0].Name, utils.CookieAccessPrefix))
}

func TestCreateSession_Validation(t *testing.T) {
	router, _ := newRouter(t)

	rec := do(router, http.MethodPost, "/create", `{"airportIcao":"toolong"}`, creator)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "airportIcao")

	rec = do(router, http.MethodPost, "/create", `{"airportIcao":"efkt"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetSession_RequiresAccess(t *testing.T) {
	router, _ := newRouter(t)
	s := createSession(t, router)
	stranger := &domain.User{ID: "999", Username: "someone"}

	rec := do(router, http.MethodGet, "/"+s.ID, "", stranger)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(router, http.MethodGet, "/"+s.ID+"?accessId="+s.AccessID, "", stranger)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/"+s.ID, "", creator)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/zzzz9999", "", creator)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateAndRename(t *testing.T) {
	router, _ := newRouter(t)
	s := createSession(t, router)

	rec := do(router, http.MethodPut, "/"+s.ID+"?accessId="+s.AccessID, `{"activeRunway":"16"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"activeRunway":"16"`)

	rec = do(router, http.MethodPost, "/update-name", `{"sessionId":"`+s.ID+`","name":"Kittila Tower"}`, creator)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Kittila Tower")

	// the access id alone does not allow managing the session
	rec = do(router, http.MethodPost, "/update-name?accessId="+s.AccessID, `{"sessionId":"`+s.ID+`","name":"x"}`, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeleteSession(t *testing.T) {
	router, _ := newRouter(t)
	s := createSession(t, router)

	rec := do(router, http.MethodPost, "/delete", `{"sessionId":"`+s.ID+`"}`, &domain.User{ID: "999"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(router, http.MethodPost, "/delete", `{"sessionId":"`+s.ID+`"}`, creator)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(router, http.MethodGet, "/mine", "", creator)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
