package flights

import (
	"net/http"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/flight"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/json"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/ws"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/utils"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Notifier interface {
	Notify()
}

// Handler is the HTTP fallback for flight sync. Every change is pushed to
// the session's flights room exactly as the websocket path does.
type Handler struct {
	flights  flight.FlightUseCase
	core     *ws.Core
	overview Notifier
	logger   *zap.Logger
}

func NewHandler(flights flight.FlightUseCase, core *ws.Core, overview Notifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		flights:  flights,
		core:     core,
		overview: overview,
		logger:   logger,
	}
}

func (h *Handler) ListFlightsHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	flights, err := h.flights.List(r.Context(), sessionID, utils.MemberFromRequest(r, sessionID))
	if err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, flights)
}

func (h *Handler) CreateFlightHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	var req domain.Flight
	if err := json.ReadJSON(w, r, &req); err != nil {
		json.WriteBadRequestError(w, err.Error())
		return
	}

	created, err := h.flights.Add(r.Context(), sessionID, utils.MemberFromRequest(r, sessionID), &req)
	if err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}

	h.publish(ws.NewEvent(ws.FlightAdded, ws.FlightsRoom(sessionID), created).To(ws.ControllersAnd(created.UserID)))
	json.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateFlightHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	flightID := chi.URLParam(r, "flightId")

	var patch domain.FlightPatch
	if err := json.ReadJSON(w, r, &patch); err != nil {
		json.WriteBadRequestError(w, err.Error())
		return
	}

	updated, err := h.flights.Update(r.Context(), sessionID, flightID, utils.MemberFromRequest(r, sessionID), patch)
	if err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}

	h.publish(ws.NewEvent(ws.FlightUpdated, ws.FlightsRoom(sessionID), updated).To(ws.ControllersAnd(updated.UserID)))
	json.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteFlightHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	flightID := chi.URLParam(r, "flightId")

	var ownerID string
	if f, err := h.flights.Get(r.Context(), sessionID, flightID); err == nil {
		ownerID = f.UserID
	}
	if err := h.flights.Delete(r.Context(), sessionID, flightID, utils.MemberFromRequest(r, sessionID)); err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}

	h.publish(ws.NewEvent(ws.FlightDeleted, ws.FlightsRoom(sessionID), ws.FlightDeletedPayload{FlightID: flightID}).
		To(ws.ControllersAnd(ownerID)))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) publish(msg *ws.WSMessage) {
	if h.core != nil {
		h.core.Publish(msg)
	}
	if h.overview != nil {
		h.overview.Notify()
	}
}
