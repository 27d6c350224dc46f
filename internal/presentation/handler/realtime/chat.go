package realtime

import (
	"context"
	"strings"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/application/usecases/chat"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/ws"
	"go.uber.org/zap"
)

type chatDispatcher struct {
	h *Handler
}

type chatMessageRequest struct {
	Message string `json:"message"`
}

type deleteMessageRequest struct {
	MessageID string `json:"messageId"`
}

func (d *chatDispatcher) Join(ctx context.Context, c *ws.Client) {
	history, err := d.h.chat.History(ctx, c.SessionID, chat.DefaultHistoryLimit)
	if err != nil {
		d.h.logger.Warn("Failed to load chat history", zap.String("session", c.SessionID), zap.Error(err))
		history = []*domain.ChatMessage{}
	}
	c.Send(ws.NewEvent(ws.ChatHistory, c.RoomID, history))

	d.h.tracker.JoinSessionChat(c.SessionID, c.UserID())
}

func (d *chatDispatcher) Leave(_ context.Context, c *ws.Client) {
	d.h.tracker.LeaveSessionChat(c.SessionID, c.UserID())
}

func (d *chatDispatcher) Dispatch(ctx context.Context, c *ws.Client, msg *ws.InboundMessage) {
	switch msg.Type {
	case ws.ChatMessage:
		if err := d.send(ctx, c, msg); err != nil {
			d.fail(c, msg.Type, err)
		}
	case ws.DeleteMessage:
		d.delete(ctx, c, msg)
	default:
		c.Send(ws.NewError(c.RoomID, "Unknown event: "+msg.Type))
	}
}

func (d *chatDispatcher) fail(c *ws.Client, event string, err error) {
	message, internal := describe(err)
	if internal {
		d.h.logger.Error("Chat event failed", zap.String("event", event), zap.String("session", c.SessionID), zap.Error(err))
	}
	c.Send(ws.NewScopedError(ws.ChatError, c.RoomID, event, message))
}

func (d *chatDispatcher) send(ctx context.Context, c *ws.Client, msg *ws.InboundMessage) error {
	var in chatMessageRequest
	if err := msg.Decode(&in); err != nil {
		return domain.ErrInvalidInput
	}

	sent, err := d.h.chat.Send(ctx, c.SessionID, c.User, in.Message)
	if err != nil {
		return err
	}

	d.h.core.Publish(ws.NewEvent(ws.ChatMessage, c.RoomID, sent))
	d.h.tracker.JoinSessionChat(c.SessionID, c.UserID())

	if len(sent.UserMentions) == 0 {
		return nil
	}
	mention := ws.NewEvent(ws.Mention, c.RoomID, ws.MentionPayload{
		MessageID: sent.ID,
		SessionID: c.SessionID,
		From:      sent.Username,
		Message:   sent.Message,
	})
	for _, userID := range mentionedInRoom(d.h.core.Rooms().Clients(c.RoomID), sent.UserMentions) {
		if userID == c.UserID() {
			continue
		}
		d.h.core.SendToUser(ws.NamespaceChat, userID, mention)
	}
	return nil
}

// delete answers failures to the requester only.
func (d *chatDispatcher) delete(ctx context.Context, c *ws.Client, msg *ws.InboundMessage) {
	var in deleteMessageRequest
	if err := msg.Decode(&in); err != nil || in.MessageID == "" {
		c.Send(ws.NewDeleteError(c.RoomID, in.MessageID, "Invalid message id"))
		return
	}

	if err := d.h.chat.Delete(ctx, c.SessionID, in.MessageID, c.UserID()); err != nil {
		message, internal := describe(err)
		if internal {
			d.h.logger.Error("Chat delete failed", zap.String("message", in.MessageID), zap.Error(err))
		}
		c.Send(ws.NewDeleteError(c.RoomID, in.MessageID, message))
		return
	}

	d.h.core.Publish(ws.NewEvent(ws.MessageDeleted, c.RoomID, ws.MessageDeletedPayload{MessageID: in.MessageID}))
}

// mentionedInRoom resolves @usernames to the user ids connected to the room.
func mentionedInRoom(clients []*ws.Client, usernames []string) []string {
	wanted := make(map[string]struct{}, len(usernames))
	for _, name := range usernames {
		wanted[strings.ToLower(name)] = struct{}{}
	}

	seen := map[string]struct{}{}
	var ids []string
	for _, cl := range clients {
		if cl.User == nil {
			continue
		}
		if _, ok := wanted[strings.ToLower(cl.User.Username)]; !ok {
			continue
		}
		if _, ok := seen[cl.User.ID]; ok {
			continue
		}
		seen[cl.User.ID] = struct{}{}
		ids = append(ids, cl.User.ID)
	}
	return ids
}
