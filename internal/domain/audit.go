package domain

import (
	"context"
	"time"
)

type AuditAction string

const (
	AuditSessionsListed       AuditAction = "SESSIONS_LISTED"
	AuditSessionDeleted       AuditAction = "SESSION_DELETED"
	AuditGlobalMessageRemoved AuditAction = "GLOBAL_MESSAGE_REMOVED"
	AuditChatReportResolved   AuditAction = "CHAT_REPORT_RESOLVED"
	AuditAuditLogsViewed      AuditAction = "AUDIT_LOGS_VIEWED"
	AuditStatisticsViewed     AuditAction = "STATISTICS_VIEWED"
	AuditUserBanned           AuditAction = "USER_BANNED"
	AuditUserUnbanned         AuditAction = "USER_UNBANNED"
)

type AuditLogEntry struct {
	ID             int64          `json:"id"`
	EventID        string         `json:"eventId"`
	AdminID        string         `json:"adminId"`
	AdminUsername  string         `json:"adminUsername"`
	ActionType     AuditAction    `json:"actionType"`
	TargetUserID   string         `json:"targetUserId,omitempty"`
	TargetUsername string         `json:"targetUsername,omitempty"`
	Details        map[string]any `json:"details,omitempty"`
	IPAddress      string         `json:"ipAddress,omitempty"`
	UserAgent      string         `json:"userAgent,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

type AuditQuery struct {
	AdminID      string
	ActionType   string
	TargetUserID string
	DateFrom     *time.Time
	DateTo       *time.Time
	Page         int
	Limit        int
}

func (q *AuditQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
}

func (q *AuditQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, Pages: pages}
}

type AuditRepository interface {
	Create(ctx context.Context, entry *AuditLogEntry) error
	Find(ctx context.Context, query AuditQuery) ([]*AuditLogEntry, int64, error)
	GetByID(ctx context.Context, id int64) (*AuditLogEntry, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}
