package sessions

import (
	"net/http"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/session"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/auth"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/json"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/validate"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/ws"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/utils"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Notifier is told when something shown on the overview changed.
type Notifier interface {
	Notify()
}

type Handler struct {
	sessions session.SessionUseCase
	core     *ws.Core
	overview Notifier
	logger   *zap.Logger
}

func NewHandler(sessions session.SessionUseCase, core *ws.Core, overview Notifier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessions: sessions,
		core:     core,
		overview: overview,
		logger:   logger,
	}
}

func (h *Handler) CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		json.WriteUnauthorizedError(w, "Authentication required")
		return
	}

	var req session.CreateInput
	if err := json.ReadJSON(w, r, &req); err != nil {
		json.WriteBadRequestError(w, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}

	created, err := h.sessions.Create(r.Context(), user, req)
	if err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}

	utils.SetAccessCookie(w, created.ID, created.AccessID)
	h.notify()
	json.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetMySessionsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		json.WriteUnauthorizedError(w, "Authentication required")
		return
	}

	sessions, err := h.sessions.GetByUser(r.Context(), user.ID)
	if err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, sessions)
}

func (h *Handler) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.ListAll(r.Context())
	if err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, sessions)
}

func (h *Handler) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	sess, err := h.sessions.GetForMember(r.Context(), sessionID, utils.MemberFromRequest(r, sessionID))
	if err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, sess)
}

func (h *Handler) UpdateSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")

	var req domain.SessionUpdate
	if err := json.ReadJSON(w, r, &req); err != nil {
		json.WriteBadRequestError(w, err.Error())
		return
	}

	updated, err := h.sessions.Update(r.Context(), sessionID, utils.MemberFromRequest(r, sessionID), req)
	if err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}

	h.broadcast(updated)
	json.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) UpdateNameHandler(w http.ResponseWriter, r *http.Request) {
	var req updateNameRequest
	if err := json.ReadJSON(w, r, &req); err != nil {
		json.WriteBadRequestError(w, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}

	renamed, err := h.sessions.Rename(r.Context(), req.SessionID, utils.MemberFromRequest(r, req.SessionID), req.Name)
	if err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}

	h.broadcast(renamed)
	json.WriteJSON(w, http.StatusOK, renamed)
}

// DeleteSessionHandler removes the session. Connected clients are told
// through the session use case's delete hook.
func (h *Handler) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	var req deleteSessionRequest
	if err := json.ReadJSON(w, r, &req); err != nil {
		json.WriteBadRequestError(w, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}

	if err := h.sessions.Delete(r.Context(), req.SessionID, utils.MemberFromRequest(r, req.SessionID)); err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, messageResponse{Message: "Session deleted"})
}

func (h *Handler) broadcast(s *domain.Session) {
	public := *s
	public.AccessID = ""
	if h.core != nil {
		h.core.Publish(ws.NewEvent(ws.SessionUpdated, ws.FlightsRoom(s.ID), &public))
	}
	h.notify()
}

func (h *Handler) notify() {
	if h.overview != nil {
		h.overview.Notify()
	}
}
