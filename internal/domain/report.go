package domain

import (
	"context"
	"time"
)

type ReportScope string

const (
	ReportScopeSession ReportScope = "session"
	ReportScopeGlobal  ReportScope = "global"
)

type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportResolved ReportStatus = "resolved"
)

const AutomodReporter = "automod"

// ChatReport is a flagged chat message waiting for review.
type ChatReport struct {
	ID         string       `json:"id"`
	MessageID  string       `json:"messageId"`
	Scope      ReportScope  `json:"scope"`
	SessionID  string       `json:"sessionId,omitempty"`
	UserID     string       `json:"userId"`
	Username   string       `json:"username"`
	Message    string       `json:"message"`
	Reason     string       `json:"reason"`
	ReportedBy string       `json:"reportedBy"`
	Status     ReportStatus `json:"status"`
	ResolvedBy string       `json:"resolvedBy,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
}

type ReportRepository interface {
	Create(ctx context.Context, report *ChatReport) error
	List(ctx context.Context, status ReportStatus, limit int) ([]*ChatReport, error)
	Resolve(ctx context.Context, id, resolvedBy string) error
}

// EventPublisher announces domain events to other services.
type EventPublisher interface {
	PublishSessionCreated(ctx context.Context, session *Session) error
	PublishSessionDeleted(ctx context.Context, session *Session) error
	PublishChatReport(ctx context.Context, report *ChatReport) error
}

// NewAutomodReport files a report for a message flagged by automod.
func NewAutomodReport(msg *ChatMessage, scope ReportScope) *ChatReport {
	return &ChatReport{
		MessageID:  msg.ID,
		Scope:      scope,
		SessionID:  msg.SessionID,
		UserID:     msg.UserID,
		Username:   msg.Username,
		Message:    msg.Message,
		Reason:     msg.AutomodReason,
		ReportedBy: AutomodReporter,
		Status:     ReportPending,
		CreatedAt:  time.Now().UTC(),
	}
}
