package realtime

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/presence"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/globalchat"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/ws"
	"go.uber.org/zap"
)

const globalHistoryLimit = 50

type station struct {
	Station  string
	Position string
}

func stationFromQuery(r *http.Request) station {
	q := r.URL.Query()
	return station{
		Station:  domain.NormalizeICAO(q.Get("station")),
		Position: strings.ToUpper(strings.TrimSpace(q.Get("position"))),
	}
}

type globalChatDispatcher struct {
	h *Handler
	// client id -> station announced at connect time
	stations sync.Map
}

type deleteGlobalMessageRequest struct {
	MessageID string `json:"messageId"`
}

func (d *globalChatDispatcher) stationOf(c *ws.Client) station {
	if v, ok := d.stations.Load(c.ID); ok {
		return v.(station)
	}
	return station{}
}

func (d *globalChatDispatcher) globalUser(c *ws.Client, st station) presence.GlobalUser {
	u := presence.GlobalUser{
		UserID:   c.UserID(),
		Username: c.Username(),
		Station:  st.Station,
		Position: st.Position,
	}
	if c.User != nil {
		u.Avatar = c.User.Avatar
	}
	return u
}

func (d *globalChatDispatcher) Join(ctx context.Context, c *ws.Client) {
	d.h.tracker.ConnectGlobal(d.globalUser(c, d.stationOf(c)))

	history, err := d.h.globalChat.History(ctx, globalHistoryLimit)
	if err != nil {
		d.h.logger.Warn("Failed to load global chat history", zap.Error(err))
		history = []*domain.GlobalChatMessage{}
	}
	c.Send(ws.NewEvent(ws.GlobalChatHistory, c.RoomID, history))
}

func (d *globalChatDispatcher) Leave(_ context.Context, c *ws.Client) {
	d.stations.Delete(c.ID)
	d.h.tracker.DisconnectGlobal(c.UserID())
}

func (d *globalChatDispatcher) Dispatch(ctx context.Context, c *ws.Client, msg *ws.InboundMessage) {
	switch msg.Type {
	case ws.GlobalChatMessage:
		if err := d.send(ctx, c, msg); err != nil {
			message, internal := describe(err)
			if internal {
				d.h.logger.Error("Global chat event failed", zap.String("user", c.UserID()), zap.Error(err))
			}
			c.Send(ws.NewScopedError(ws.ChatError, c.RoomID, msg.Type, message))
		}
	case ws.DeleteGlobalMessage:
		d.delete(ctx, c, msg)
	case ws.GlobalChatOpened:
		d.h.tracker.OpenGlobalChat(c.UserID())
	case ws.GlobalChatClosed:
		d.h.tracker.CloseGlobalChat(c.UserID())
	default:
		c.Send(ws.NewError(c.RoomID, "Unknown event: "+msg.Type))
	}
}

func (d *globalChatDispatcher) send(ctx context.Context, c *ws.Client, msg *ws.InboundMessage) error {
	var in globalchat.SendInput
	if err := msg.Decode(&in); err != nil {
		return domain.ErrInvalidInput
	}

	st := d.stationOf(c)
	if in.Station == "" {
		in.Station = st.Station
	}
	if in.Position == "" {
		in.Position = st.Position
	}

	sent, err := d.h.globalChat.Send(ctx, c.User, in)
	if err != nil {
		return err
	}

	d.h.core.Publish(ws.NewEvent(ws.GlobalChatMessage, c.RoomID, sent))
	d.h.tracker.TouchGlobal(d.globalUser(c, station{Station: sent.Station, Position: sent.Position}))

	if sent.Automodded {
		c.Send(ws.NewEvent(ws.MessageAutomodded, c.RoomID, ws.AutomoddedPayload{
			MessageID: sent.ID,
			Reason:    sent.AutomodReason,
		}))
	}

	d.notifyMentions(c, sent)
	return nil
}

func (d *globalChatDispatcher) notifyMentions(c *ws.Client, sent *domain.GlobalChatMessage) {
	if len(sent.UserMentions) == 0 && len(sent.AirportMentions) == 0 {
		return
	}

	connected, _ := d.h.tracker.GlobalUsers()
	for _, userID := range mentionedGlobalUsers(connected, sent.UserMentions) {
		if userID == c.UserID() {
			continue
		}
		d.h.core.SendToUser(ws.NamespaceGlobalChat, userID, ws.NewEvent(ws.GlobalChatMention, c.RoomID, ws.MentionPayload{
			MessageID: sent.ID,
			From:      sent.Username,
			Message:   sent.Message,
		}))
	}

	for _, airport := range sent.AirportMentions {
		event := ws.NewEvent(ws.AirportMention, c.RoomID, ws.MentionPayload{
			MessageID: sent.ID,
			From:      sent.Username,
			Message:   sent.Message,
			Airport:   airport,
		})
		for _, u := range connected {
			if u.Station == airport && u.UserID != c.UserID() {
				d.h.core.SendToUser(ws.NamespaceGlobalChat, u.UserID, event)
			}
		}
	}
}

func (d *globalChatDispatcher) delete(ctx context.Context, c *ws.Client, msg *ws.InboundMessage) {
	var in deleteGlobalMessageRequest
	if err := msg.Decode(&in); err != nil || in.MessageID == "" {
		c.Send(ws.NewScopedError(ws.ChatError, c.RoomID, msg.Type, "Invalid message id"))
		return
	}

	if err := d.h.globalChat.Delete(ctx, in.MessageID, c.UserID()); err != nil {
		message, internal := describe(err)
		if internal {
			d.h.logger.Error("Global chat delete failed", zap.String("message", in.MessageID), zap.Error(err))
		}
		c.Send(ws.NewScopedError(ws.ChatError, c.RoomID, msg.Type, message))
		return
	}

	d.h.core.Publish(ws.NewEvent(ws.GlobalMessageDeleted, c.RoomID, ws.MessageDeletedPayload{MessageID: in.MessageID}))
}

func mentionedGlobalUsers(users []presence.GlobalUser, usernames []string) []string {
	wanted := make(map[string]struct{}, len(usernames))
	for _, name := range usernames {
		wanted[strings.ToLower(name)] = struct{}{}
	}
	var ids []string
	for _, u := range users {
		if _, ok := wanted[strings.ToLower(u.Username)]; ok {
			ids = append(ids, u.UserID)
		}
	}
	return ids
}
