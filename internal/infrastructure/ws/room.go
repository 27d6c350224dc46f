package ws

import (
	"errors"
	"sync"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/metrics"
	"go.uber.org/zap"
)

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrClientNotFound = errors.New("client not found")
)

type WSRoom struct {
	ID      string
	Clients map[string]*Client
}

// RoomManager tracks which connections belong to which room. Only Core
// mutates it; reads may come from any goroutine.
type RoomManager struct {
	rooms   map[string]*WSRoom // roomID → WSRoom
	mu      sync.RWMutex
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewRoomManager(logger *zap.Logger, m *metrics.Metrics) *RoomManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomManager{
		rooms:   make(map[string]*WSRoom),
		logger:  logger,
		metrics: m,
	}
}

func (rm *RoomManager) AddClient(cl *Client) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[cl.RoomID]
	if !ok {
		room = &WSRoom{
			ID:      cl.RoomID,
			Clients: make(map[string]*Client),
		}
		rm.rooms[cl.RoomID] = room
	}

	if _, exists := room.Clients[cl.ID]; !exists {
		room.Clients[cl.ID] = cl
	}
}

// RemoveClient drops the client and closes its outbound queue. It reports
// whether the client was present.
func (rm *RoomManager) RemoveClient(cl *Client) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	room, ok := rm.rooms[cl.RoomID]
	if !ok {
		return false
	}
	if _, ok := room.Clients[cl.ID]; !ok {
		return false
	}

	delete(room.Clients, cl.ID)
	cl.close()

	if len(room.Clients) == 0 {
		delete(rm.rooms, cl.RoomID)
	}
	return true
}

func (rm *RoomManager) GetRoom(roomID string) (*WSRoom, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	r, ok := rm.rooms[roomID]
	return r, ok
}

// Clients returns a snapshot of the room members.
func (rm *RoomManager) Clients(roomID string) []*Client {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	room, ok := rm.rooms[roomID]
	if !ok {
		return nil
	}

	out := make([]*Client, 0, len(room.Clients))
	for _, cl := range room.Clients {
		out = append(out, cl)
	}
	return out
}

func (rm *RoomManager) Count(roomID string) int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	if room, ok := rm.rooms[roomID]; ok {
		return len(room.Clients)
	}
	return 0
}

func (rm *RoomManager) BroadcastToRoom(msg *WSMessage) error {
	clients := rm.Clients(msg.RoomID)
	if clients == nil {
		return ErrRoomNotFound
	}

	for _, cl := range clients {
		if msg.deliverableTo(cl) {
			rm.deliver(cl, msg)
		}
	}
	return nil
}

// SendToUser delivers msg to every connection of userID in namespace.
func (rm *RoomManager) SendToUser(namespace, userID string, msg *WSMessage) int {
	rm.mu.RLock()
	var targets []*Client
	for _, room := range rm.rooms {
		for _, cl := range room.Clients {
			if cl.Namespace == namespace && cl.UserID() == userID {
				targets = append(targets, cl)
			}
		}
	}
	rm.mu.RUnlock()

	for _, cl := range targets {
		rm.deliver(cl, msg)
	}
	return len(targets)
}

func (rm *RoomManager) CloseAll() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for id, room := range rm.rooms {
		for _, cl := range room.Clients {
			cl.close()
		}
		delete(rm.rooms, id)
	}
}

func (rm *RoomManager) deliver(cl *Client, msg *WSMessage) {
	if !cl.Send(msg) {
		// client is too slow or gone, drop the message
		rm.metrics.Dropped()
		rm.logger.Debug("client buffer full, dropping message",
			zap.String("client", cl.ID),
			zap.String("room", cl.RoomID),
			zap.String("type", msg.Type),
		)
	}
}
