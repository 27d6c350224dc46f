package flights

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/flight"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/auth"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/repository"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/ws"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sessionID = "abcd1234"
	accessID  = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
)

type fixture struct {
	router http.Handler
	core   *ws.Core
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codec, err := crypto.NewCodec("test-secret-key-with-enough-bytes", nil)
	require.NoError(t, err)

	sessions := repository.NewSessionRepository(codec)
	store := repository.NewPartitionStore()
	s, err := domain.NewSession(sessionID, accessID, "100", "EFKT", "34", true)
	require.NoError(t, err)
	require.NoError(t, sessions.Create(context.Background(), s))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	core := ws.NewCore(nil, nil)
	go core.Run(ctx)

	uc := flight.NewFlightUseCase(sessions, repository.NewFlightRepository(store, codec), store, nil, nil)
	h := NewHandler(uc, core, nil, nil)

	r := chi.NewRouter()
	r.Get("/{sessionId}", h.ListFlightsHandler)
	r.Post("/{sessionId}", h.CreateFlightHandler)
	r.Put("/{sessionId}/{flightId}", h.UpdateFlightHandler)
	r.Delete("/{sessionId}/{flightId}", h.DeleteFlightHandler)
	return &fixture{router: r, core: core}
}

func (f *fixture) do(method, target, body string, user *domain.User) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if user != nil {
		req = req.WithContext(auth.WithUser(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestFlightLifecycleBroadcasts(t *testing.T) {
	f := newFixture(t)
	pilot := &domain.User{ID: "200", Username: "finnair1"}

	watcher := ws.NewClient(nil, ws.NamespaceFlights, ws.FlightsRoom(sessionID), nil, ws.ClientOptions{})
	watcher.Controller = true
	bystander := ws.NewClient(nil, ws.NamespaceFlights, ws.FlightsRoom(sessionID), &domain.User{ID: "300"}, ws.ClientOptions{})
	require.NoError(t, f.core.Register(context.Background(), watcher))
	require.NoError(t, f.core.Register(context.Background(), bystander))
	require.Eventually(t, func() bool { return f.core.Rooms().Count(ws.FlightsRoom(sessionID)) == 2 }, time.Second, 5*time.Millisecond)

	rec := f.do(http.MethodPost, "/"+sessionID, `{"callsign":"fin7"}`, pilot)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created domain.Flight
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, pilot.ID, created.UserID)

	msg := <-watcher.Message
	assert.Equal(t, ws.FlightAdded, msg.Type)

	// pilots only see their own strip and cannot edit it
	rec = f.do(http.MethodPut, "/"+sessionID+"/"+created.ID, `{"squawk":"1234"}`, pilot)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(http.MethodPut, "/"+sessionID+"/"+created.ID+"?accessId="+accessID, `{"squawk":"1234"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ws.FlightUpdated, (<-watcher.Message).Type)

	rec = f.do(http.MethodPut, "/"+sessionID+"/"+created.ID+"?accessId="+accessID, `{"id":"other"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(http.MethodDelete, "/"+sessionID+"/"+created.ID+"?accessId="+accessID, "", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, ws.FlightDeleted, (<-watcher.Message).Type)

	// strip events never reach pilots who did not file the flight
	assert.Empty(t, bystander.Message)
}

func TestListFlights(t *testing.T) {
	f := newFixture(t)
	pilot := &domain.User{ID: "200"}
	other := &domain.User{ID: "300"}

	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/"+sessionID, `{"callsign":"FIN1"}`, pilot).Code)
	require.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/"+sessionID, `{"callsign":"FIN2"}`, other).Code)

	var list []domain.Flight
	rec := f.do(http.MethodGet, "/"+sessionID, "", pilot)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "FIN1", list[0].Callsign)

	rec = f.do(http.MethodGet, "/"+sessionID+"?accessId="+accessID, "", nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	rec = f.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
