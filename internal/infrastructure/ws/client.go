package ws

import (
	"context"
	"sync"
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/domain"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 64
)

// unregisterWait bounds the hand-off to Core when a reader exits. Core may
// already be gone during shutdown.
var unregisterWait = 5 * time.Second

// Dispatcher handles the events of one namespace.
type Dispatcher interface {
	Dispatch(ctx context.Context, c *Client, msg *InboundMessage)
	Leave(ctx context.Context, c *Client)
}

type ClientOptions struct {
	EventsPerSecond float64
	Burst           int
	MaxMessageBytes int64
	PongWait        time.Duration
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.EventsPerSecond <= 0 {
		o.EventsPerSecond = 5
	}
	if o.Burst <= 0 {
		o.Burst = 10
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 16 << 10
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	return o
}

type Client struct {
	conn       *connWrapper
	Message    chan *WSMessage
	ID         string       `json:"id"`
	RoomID     string       `json:"roomId"`
	Namespace  string       `json:"namespace"`
	SessionID  string       `json:"sessionId,omitempty"`
	User       *domain.User `json:"user,omitempty"`
	Controller bool         `json:"controller"`
	AccessID   string       `json:"-"`

	opts    ClientOptions
	limiter *rate.Limiter
	mu      sync.RWMutex
	closed  bool
}

// NewClient wraps conn. conn may be nil for clients that are only fed
// through their Message channel.
func NewClient(conn *websocket.Conn, namespace, roomID string, user *domain.User, opts ClientOptions) *Client {
	opts = opts.withDefaults()
	return &Client{
		conn:      newConnWrapper(conn),
		Message:   make(chan *WSMessage, sendBuffer), // buffered to avoid dead-locks on slow clients
		ID:        uuid.NewString(),
		RoomID:    roomID,
		Namespace: namespace,
		User:      user,
		opts:      opts,
		limiter:   rate.NewLimiter(rate.Limit(opts.EventsPerSecond), opts.Burst),
	}
}

func (c *Client) UserID() string {
	if c.User == nil {
		return ""
	}
	return c.User.ID
}

func (c *Client) Username() string {
	if c.User == nil {
		return ""
	}
	return c.User.Username
}

// Send queues msg without blocking. It reports false when the buffer is
// full or the client has been closed.
func (c *Client) Send(msg *WSMessage) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}
	select {
	case c.Message <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.Message)
}

// Member is the identity the client acts with on its session.
func (c *Client) Member() *domain.Member {
	if !c.Controller {
		return domain.NewMember(c.User, "")
	}
	return domain.NewMember(c.User, c.AccessID)
}

// Allow consumes one token from the per-connection event budget.
func (c *Client) Allow() bool {
	return c.limiter.Allow()
}

// detach runs the dispatcher's Leave and removes c from its room. It does
// not depend on ctx still being live.
func (c *Client) detach(ctx context.Context, core *Core, d Dispatcher) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unregisterWait)
	defer cancel()

	if d != nil {
		d.Leave(ctx, c)
	}
	core.Unregister(ctx, c)
}

func (c *Client) ReadMessage(ctx context.Context, core *Core, d Dispatcher) {
	defer func() {
		c.detach(ctx, core, d)
		_ = c.conn.Close()
	}()

	c.conn.conn.SetReadLimit(c.opts.MaxMessageBytes)
	_ = c.conn.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.conn.SetPongHandler(func(string) error {
		return c.conn.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, raw, err := c.conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				core.logger.Debug("ws read error", zap.String("client", c.ID), zap.Error(err))
			}
			break
		}

		var msg InboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
			c.Send(NewError(c.RoomID, "Malformed message"))
			continue
		}

		if !c.Allow() {
			core.metrics.Limited(c.Namespace)
			c.Send(NewRateLimited(c.RoomID, msg.Type))
			continue
		}

		core.metrics.Event(c.Namespace, msg.Type)
		c.dispatch(ctx, core, d, &msg)
	}
}

func (c *Client) dispatch(ctx context.Context, core *Core, d Dispatcher, msg *InboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			core.metrics.EventError(c.Namespace, msg.Type)
			core.logger.Error("ws dispatch panic",
				zap.String("client", c.ID),
				zap.String("event", msg.Type),
				zap.Any("panic", r),
			)
			c.Send(NewError(c.RoomID, "Internal server error"))
		}
	}()

	d.Dispatch(ctx, c, msg)
}

func (c *Client) WriteMessage(core *Core) {
	ticker := time.NewTicker(c.opts.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Message:
			if !ok {
				_ = c.conn.WriteClose(websocket.CloseNormalClosure, "")
				return
			}
			if err := c.conn.WriteJSON(msg, time.Now().Add(writeWait)); err != nil {
				core.logger.Debug("ws write error", zap.String("client", c.ID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.conn.WritePing(time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// Kick sends a final frame and closes the connection.
func (c *Client) Kick(msg *WSMessage) {
	if c.conn == nil {
		c.Send(msg)
		return
	}
	_ = c.conn.WriteJSON(msg, time.Now().Add(writeWait))
	_ = c.conn.WriteClose(websocket.ClosePolicyViolation, "")
	_ = c.conn.Close()
}
