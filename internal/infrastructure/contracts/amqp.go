package contracts

// AmqpMessage is the envelope every event travels in.
type AmqpMessage struct {
	OwnerID string `json:"ownerId"`
	Data    []byte `json:"data"`
}

// Routing keys
const (
	EventSessionCreated   = "session.created"
	EventSessionDeleted   = "session.deleted"
	EventChatAutomodded   = "chat.automodded"
	DefaultEventsExchange = "pfcontrol"
)
