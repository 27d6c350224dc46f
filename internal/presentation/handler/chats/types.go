package chats

type createMessageRequest struct {
	Message string `json:"message" validate:"required"`
}
