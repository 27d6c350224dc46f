package ws

import (
	"context"
	"errors"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

const queueSize = 1024

type directMessage struct {
	namespace string
	userID    string
	msg       *WSMessage
}

// Core serializes room membership changes and fans out broadcasts.
type Core struct {
	roomMgr    *RoomManager
	register   chan *Client
	unregister chan *Client
	broadcast  chan *WSMessage
	direct     chan directMessage
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewCore(logger *zap.Logger, m *metrics.Metrics) *Core {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Core{
		roomMgr:    NewRoomManager(logger, m),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *WSMessage, queueSize),
		direct:     make(chan directMessage, queueSize),
		logger:     logger,
		metrics:    m,
	}
}

func (c *Core) Run(ctx context.Context) {
	for {
		select {
		case cl := <-c.register:
			c.roomMgr.AddClient(cl)
			c.metrics.ConnectionOpened(cl.Namespace)

		case cl := <-c.unregister:
			if c.roomMgr.RemoveClient(cl) {
				c.metrics.ConnectionClosed(cl.Namespace)
			}

		case msg := <-c.broadcast:
			if err := c.roomMgr.BroadcastToRoom(msg); err != nil && !errors.Is(err, ErrRoomNotFound) {
				c.logger.Warn("broadcast error", zap.Error(err))
			}

		case dm := <-c.direct:
			c.roomMgr.SendToUser(dm.namespace, dm.userID, dm.msg)

		case <-ctx.Done():
			c.roomMgr.CloseAll()
			return
		}
	}
}

// Serve runs the core under a supervisor.
func (c *Core) Serve(ctx context.Context) error {
	c.Run(ctx)
	return ctx.Err()
}

func (c *Core) Rooms() *RoomManager {
	return c.roomMgr
}

func (c *Core) Register(ctx context.Context, cl *Client) error {
	select {
	case c.register <- cl:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Core) Unregister(ctx context.Context, cl *Client) {
	select {
	case c.unregister <- cl:
	case <-ctx.Done():
	}
}

// Publish queues msg for every member of msg.RoomID.
func (c *Core) Publish(msg *WSMessage) {
	select {
	case c.broadcast <- msg:
	default:
		c.metrics.Dropped()
		c.logger.Warn("broadcast queue full, dropping message", zap.String("room", msg.RoomID), zap.String("type", msg.Type))
	}
}

// SendToUser queues msg for every connection userID has in namespace.
func (c *Core) SendToUser(namespace, userID string, msg *WSMessage) {
	if userID == "" {
		return
	}
	select {
	case c.direct <- directMessage{namespace: namespace, userID: userID, msg: msg}:
	default:
		c.metrics.Dropped()
		c.logger.Warn("direct queue full, dropping message", zap.String("user", userID), zap.String("type", msg.Type))
	}
}
