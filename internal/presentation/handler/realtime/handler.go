package realtime

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/presence"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/chat"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/flight"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/globalchat"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/session"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/auth"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/logging"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/ws"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/presentation/utils"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler upgrades the four realtime namespaces and routes their events.
type Handler struct {
	core       *ws.Core
	upgrader   *websocket.Upgrader
	verifier   *auth.Verifier
	sessions   session.SessionUseCase
	flights    flight.FlightUseCase
	chat       chat.ChatUseCase
	globalChat globalchat.GlobalChatUseCase
	tracker    *presence.Tracker
	overview   *OverviewBroadcaster
	clientOpts ws.ClientOptions
	logger     *zap.Logger

	flightsDispatcher    *flightsDispatcher
	chatDispatcher       *chatDispatcher
	globalChatDispatcher *globalChatDispatcher
	overviewDispatcher   *overviewDispatcher
}

// NewHandler also subscribes the handler to presence changes and session
// deletions so both are pushed to the affected rooms.
func NewHandler(
	core *ws.Core,
	upgrader *websocket.Upgrader,
	verifier *auth.Verifier,
	sessions session.SessionUseCase,
	flights flight.FlightUseCase,
	chatUseCase chat.ChatUseCase,
	globalChat globalchat.GlobalChatUseCase,
	tracker *presence.Tracker,
	overview *OverviewBroadcaster,
	clientOpts ws.ClientOptions,
	logger *zap.Logger,
) *Handler {
	h := &Handler{
		core:       core,
		upgrader:   upgrader,
		verifier:   verifier,
		sessions:   sessions,
		flights:    flights,
		chat:       chatUseCase,
		globalChat: globalChat,
		tracker:    tracker,
		overview:   overview,
		clientOpts: clientOpts,
		logger:     logging.Named(logger, logging.WebSocket),
	}
	h.flightsDispatcher = &flightsDispatcher{h: h}
	h.chatDispatcher = &chatDispatcher{h: h}
	h.globalChatDispatcher = &globalChatDispatcher{h: h}
	h.overviewDispatcher = &overviewDispatcher{h: h}

	tracker.OnChange(h.onPresenceChange)
	sessions.OnDeleted(h.onSessionDeleted)
	return h
}

func (h *Handler) FlightsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrade(w, r)
	if err != nil {
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	user := h.identify(r)
	sess, controller, err := h.resolveSession(r.Context(), sessionID, utils.AccessID(r, sessionID), user)
	if err != nil {
		h.reject(conn, ws.FlightsRoom(sessionID), err)
		return
	}

	client := ws.NewClient(conn, ws.NamespaceFlights, ws.FlightsRoom(sess.ID), user, h.clientOpts)
	client.SessionID = sess.ID
	client.Controller = controller
	if controller {
		client.AccessID = sess.AccessID
	}

	h.run(r.Context(), client, h.flightsDispatcher)
}

func (h *Handler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrade(w, r)
	if err != nil {
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	user := h.identify(r)
	if user == nil {
		h.reject(conn, ws.ChatRoom(sessionID), auth.ErrMissingToken)
		return
	}
	sess, controller, err := h.resolveSession(r.Context(), sessionID, utils.AccessID(r, sessionID), user)
	if err == nil && !controller {
		err = domain.ErrInvalidAccessID
	}
	if err != nil {
		h.reject(conn, ws.ChatRoom(sessionID), err)
		return
	}

	client := ws.NewClient(conn, ws.NamespaceChat, ws.ChatRoom(sess.ID), user, h.clientOpts)
	client.SessionID = sess.ID
	client.Controller = true
	client.AccessID = sess.AccessID

	h.run(r.Context(), client, h.chatDispatcher)
}

func (h *Handler) GlobalChatHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrade(w, r)
	if err != nil {
		return
	}

	user := h.identify(r)
	if user == nil {
		h.reject(conn, ws.GlobalChatRoom, auth.ErrMissingToken)
		return
	}

	client := ws.NewClient(conn, ws.NamespaceGlobalChat, ws.GlobalChatRoom, user, h.clientOpts)
	h.globalChatDispatcher.stations.Store(client.ID, stationFromQuery(r))
	h.run(r.Context(), client, h.globalChatDispatcher)
}

func (h *Handler) OverviewHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrade(w, r)
	if err != nil {
		return
	}

	client := ws.NewClient(conn, ws.NamespaceOverview, ws.OverviewRoom, h.identify(r), h.clientOpts)
	h.run(r.Context(), client, h.overviewDispatcher)
}

func (h *Handler) upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("WebSocket upgrade failed",
			logging.Fields(logging.WebSocket, logging.Handshake, map[logging.ExtraKey]any{
				logging.Path:         r.URL.Path,
				logging.ErrorMessage: err.Error(),
			})...)
		return nil, err
	}
	return conn, nil
}

func (h *Handler) identify(r *http.Request) *domain.User {
	if h.verifier == nil {
		return nil
	}
	user, err := h.verifier.FromRequest(r)
	if err != nil {
		return nil
	}
	return user
}

// resolveSession reports whether the connection controls the session. A
// missing access id makes the caller a pilot unless they own the session;
// a wrong one is refused.
func (h *Handler) resolveSession(ctx context.Context, sessionID, accessID string, user *domain.User) (*domain.Session, bool, error) {
	if err := domain.ValidateSessionID(sessionID); err != nil {
		return nil, false, err
	}

	if accessID != "" {
		sess, err := h.sessions.ValidateAccess(ctx, sessionID, accessID)
		if err != nil {
			return nil, false, err
		}
		return sess, true, nil
	}

	sess, err := h.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, false, err
	}
	return sess, domain.NewMember(user, "").CanControl(sess), nil
}

func (h *Handler) reject(conn *websocket.Conn, roomID string, err error) {
	msg := "Failed to join"
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrInvalidSessionID):
		msg = "Session not found"
	case errors.Is(err, domain.ErrInvalidAccessID):
		msg = "Invalid access id"
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken):
		ws.NewClient(conn, "", roomID, nil, h.clientOpts).Kick(ws.NewAuthError(roomID, "Authentication required"))
		return
	default:
		h.logger.Warn("WebSocket join failed", zap.String("room", roomID), zap.Error(err))
	}
	ws.NewClient(conn, "", roomID, nil, h.clientOpts).Kick(ws.NewJoinFailed(roomID, msg))
}

type joiner interface {
	ws.Dispatcher
	Join(ctx context.Context, c *ws.Client)
}

// run blocks for the lifetime of the connection.
func (h *Handler) run(ctx context.Context, client *ws.Client, d joiner) {
	registerCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := h.core.Register(registerCtx, client); err != nil {
		client.Kick(ws.NewError(client.RoomID, "Server is shutting down"))
		return
	}

	go client.WriteMessage(h.core)
	d.Join(ctx, client)
	client.ReadMessage(ctx, h.core, d)
}

func (h *Handler) onPresenceChange(change presence.Change) {
	switch change.Kind {
	case presence.SessionChatChanged:
		h.core.Publish(ws.NewEvent(ws.ActiveChatUsers, ws.ChatRoom(change.SessionID),
			h.tracker.ActiveSessionChatUsers(change.SessionID)))
	case presence.GlobalChatChanged:
		connected, active := h.tracker.GlobalUsers()
		h.core.Publish(ws.NewEvent(ws.ConnectedGlobalChatUsers, ws.GlobalChatRoom, connected))
		h.core.Publish(ws.NewEvent(ws.ActiveGlobalChatUsers, ws.GlobalChatRoom, active))
	case presence.ControllersChanged:
		h.overview.Notify()
	}
}

type sessionDeletedPayload struct {
	SessionID string `json:"sessionId"`
}

func (h *Handler) onSessionDeleted(sessionID string) {
	payload := sessionDeletedPayload{SessionID: sessionID}
	h.core.Publish(ws.NewEvent(ws.SessionDeleted, ws.FlightsRoom(sessionID), payload))
	h.core.Publish(ws.NewEvent(ws.SessionDeleted, ws.ChatRoom(sessionID), payload))
	h.tracker.ForgetSession(sessionID)
	h.overview.Notify()
}

// publicSession strips the access id before a session is broadcast to a
// room that may hold pilots.
func publicSession(s *domain.Session) *domain.Session {
	out := *s
	out.AccessID = ""
	return &out
}
