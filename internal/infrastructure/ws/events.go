package ws

// Namespaces
const (
	NamespaceFlights    = "flights"
	NamespaceChat       = "chat"
	NamespaceGlobalChat = "global-chat"
	NamespaceOverview   = "overview"
)

// Flight sync
const (
	AddFlight     = "addFlight"
	UpdateFlight  = "updateFlight"
	DeleteFlight  = "deleteFlight"
	UpdateSession = "updateSession"
	IssuePDC      = "issuePDC"
	RequestPDC    = "requestPDC"
	ContactMe     = "contactMe"

	FlightAdded    = "flightAdded"
	FlightUpdated  = "flightUpdated"
	FlightDeleted  = "flightDeleted"
	SessionUpdated = "sessionUpdated"
	FlightError    = "flightError"
	PDCIssued      = "pdcIssued"
	PDCRequested   = "pdcRequested"
	FlightList     = "flights"
)

// Session chat
const (
	ChatMessage     = "chatMessage"
	DeleteMessage   = "deleteMessage"
	MessageDeleted  = "messageDeleted"
	DeleteError     = "deleteError"
	ActiveChatUsers = "activeChatUsers"
	Mention         = "mention"
	ChatHistory     = "chatHistory"
	ChatError       = "chatError"
)

// Global chat
const (
	GlobalChatMessage        = "globalChatMessage"
	DeleteGlobalMessage      = "deleteGlobalMessage"
	GlobalChatOpened         = "globalChatOpened"
	GlobalChatClosed         = "globalChatClosed"
	GlobalMessageDeleted     = "globalMessageDeleted"
	ConnectedGlobalChatUsers = "connectedGlobalChatUsers"
	ActiveGlobalChatUsers    = "activeGlobalChatUsers"
	GlobalChatMention        = "globalChatMention"
	AirportMention           = "airportMention"
	MessageAutomodded        = "messageAutomodded"
	GlobalChatHistory        = "globalChatHistory"
)

// Overview
const (
	OverviewData = "overviewData"
)

// Connection level
const (
	ErrorEvent          = "error"
	AuthenticationError = "error.auth"
	JoinFailed          = "error.join"
	RateLimited         = "error.rate_limited"
	SessionDeleted      = "sessionDeleted"
)

const GlobalChatRoom = "global-chat"
const OverviewRoom = "overview"

func FlightsRoom(sessionID string) string {
	return NamespaceFlights + ":" + sessionID
}

func ChatRoom(sessionID string) string {
	return NamespaceChat + ":" + sessionID
}
