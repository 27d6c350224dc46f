package chats

import (
	"net/http"
	"strconv"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/chat"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/session"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/auth"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/json"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/validate"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/ws"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/utils"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler is the HTTP fallback for session chat. Reads and writes need
// controller access to the session, like the websocket namespace.
type Handler struct {
	sessions session.SessionUseCase
	chat     chat.ChatUseCase
	core     *ws.Core
	logger   *zap.Logger
}

func NewHandler(sessions session.SessionUseCase, chatUseCase chat.ChatUseCase, core *ws.Core, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessions: sessions,
		chat:     chatUseCase,
		core:     core,
		logger:   logger,
	}
}

func (h *Handler) GetMessagesHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	if _, err := h.sessions.GetForMember(r.Context(), sessionID, utils.MemberFromRequest(r, sessionID)); err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}

	limit := chat.DefaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			json.WriteBadRequestError(w, "limit must be a number")
			return
		}
		limit = n
	}

	messages, err := h.chat.History(r.Context(), sessionID, limit)
	if err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}
	json.WriteJSON(w, http.StatusOK, messages)
}

func (h *Handler) CreateMessageHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		json.WriteUnauthorizedError(w, "Authentication required")
		return
	}

	var req createMessageRequest
	if err := json.ReadJSON(w, r, &req); err != nil {
		json.WriteBadRequestError(w, err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}

	if _, err := h.sessions.GetForMember(r.Context(), sessionID, utils.MemberFromRequest(r, sessionID)); err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}

	msg, err := h.chat.Send(r.Context(), sessionID, user, req.Message)
	if err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}

	if h.core != nil {
		h.core.Publish(ws.NewEvent(ws.ChatMessage, ws.ChatRoom(sessionID), msg))
	}
	json.WriteJSON(w, http.StatusCreated, msg)
}

func (h *Handler) DeleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionId")
	messageID := chi.URLParam(r, "messageId")
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		json.WriteUnauthorizedError(w, "Authentication required")
		return
	}

	if err := h.chat.Delete(r.Context(), sessionID, messageID, user.ID); err != nil {
		utils.WriteDomainError(w, h.logger, err)
		return
	}

	if h.core != nil {
		h.core.Publish(ws.NewEvent(ws.MessageDeleted, ws.ChatRoom(sessionID), ws.MessageDeletedPayload{MessageID: messageID}))
	}
	w.WriteHeader(http.StatusNoContent)
}
