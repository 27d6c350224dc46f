package sessions

type updateNameRequest struct {
	SessionID string `json:"sessionId" validate:"required,len=8,alphanum"`
	Name      string `json:"name" validate:"max=50"`
}

type deleteSessionRequest struct {
	SessionID string `json:"sessionId" validate:"required,len=8,alphanum"`
}

type messageResponse struct {
	Message string `json:"message"`
}
