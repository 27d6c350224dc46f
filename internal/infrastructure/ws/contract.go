package ws

import "github.com/goccy/go-json"

// WSMessage is the server to client frame.
type WSMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Data   any    `json:"data"`

	audience func(*Client) bool
}

// To narrows a room broadcast to the members allow accepts.
func (m *WSMessage) To(allow func(*Client) bool) *WSMessage {
	m.audience = allow
	return m
}

func (m *WSMessage) deliverableTo(cl *Client) bool {
	return m.audience == nil || m.audience(cl)
}

// ControllersAnd accepts controller connections plus every connection of
// userID. Strip events use it so a pilot only sees their own flights.
func ControllersAnd(userID string) func(*Client) bool {
	return func(cl *Client) bool {
		return cl.Controller || (userID != "" && cl.UserID() == userID)
	}
}

// InboundMessage is the client to server frame.
type InboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals the frame data into dst.
func (m *InboundMessage) Decode(dst any) error {
	if len(m.Data) == 0 {
		return json.Unmarshal([]byte("{}"), dst)
	}
	return json.Unmarshal(m.Data, dst)
}

// Payload structs
type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Event   string `json:"event,omitempty"`
	Message string `json:"message"`
	Retry   bool   `json:"retry,omitempty"`
}

type FlightDeletedPayload struct {
	FlightID string `json:"flightId"`
}

type MessageDeletedPayload struct {
	MessageID string `json:"messageId"`
}

type DeleteErrorPayload struct {
	MessageID string `json:"messageId"`
	Error     string `json:"error"`
}

type PDCPayload struct {
	FlightID string `json:"flightId"`
	Callsign string `json:"callsign,omitempty"`
	PDC      string `json:"pdc,omitempty"`
	IssuedBy string `json:"issuedBy,omitempty"`
}

type ContactMePayload struct {
	FlightID string `json:"flightId"`
	Message  string `json:"message"`
	From     string `json:"from,omitempty"`
}

type MentionPayload struct {
	MessageID string `json:"messageId"`
	SessionID string `json:"sessionId,omitempty"`
	From      string `json:"from"`
	Message   string `json:"message"`
	Airport   string `json:"airport,omitempty"`
}

type AutomoddedPayload struct {
	MessageID string `json:"messageId"`
	Reason    string `json:"reason"`
}

func NewEvent(eventType, roomID string, data any) *WSMessage {
	return &WSMessage{
		Type:   eventType,
		RoomID: roomID,
		Data:   data,
	}
}

// NewScopedError reports a failed event to the requester only.
func NewScopedError(eventType, roomID, failedEvent, message string) *WSMessage {
	return &WSMessage{
		Type:   eventType,
		RoomID: roomID,
		Data: ErrorPayload{
			Event:   failedEvent,
			Message: message,
		},
	}
}

func NewError(roomID, message string) *WSMessage {
	return &WSMessage{
		Type:   ErrorEvent,
		RoomID: roomID,
		Data: ErrorPayload{
			Message: message,
			Retry:   false,
		},
	}
}

func NewAuthError(roomID, message string) *WSMessage {
	return &WSMessage{
		Type:   AuthenticationError,
		RoomID: roomID,
		Data: ErrorPayload{
			Code:    "AUTH_FAILED",
			Message: message,
			Retry:   false,
		},
	}
}

func NewJoinFailed(roomID, reason string) *WSMessage {
	return &WSMessage{
		Type:   JoinFailed,
		RoomID: roomID,
		Data: ErrorPayload{
			Code:    "JOIN_FAILED",
			Message: reason,
			Retry:   true,
		},
	}
}

func NewRateLimited(roomID, failedEvent string) *WSMessage {
	return &WSMessage{
		Type:   RateLimited,
		RoomID: roomID,
		Data: ErrorPayload{
			Code:    "RATE_LIMITED",
			Event:   failedEvent,
			Message: "You are sending events too quickly",
			Retry:   true,
		},
	}
}

func NewDeleteError(roomID, messageID, reason string) *WSMessage {
	return &WSMessage{
		Type:   DeleteError,
		RoomID: roomID,
		Data: DeleteErrorPayload{
			MessageID: messageID,
			Error:     reason,
		},
	}
}
