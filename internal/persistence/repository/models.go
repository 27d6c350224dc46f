package repository

import (
	"time"

	"github.com/cephie-studios/pfcontrol-2-sub004/internal/infrastructure/crypto"
	"gorm.io/gorm"
)

type sessionModel struct {
	SessionID    string           `gorm:"column:session_id;primaryKey;size:8"`
	AccessID     string           `gorm:"column:access_id;size:64;not null"`
	AirportICAO  string           `gorm:"column:airport_icao;size:4;not null"`
	ActiveRunway string           `gorm:"column:active_runway"`
	CreatedBy    string           `gorm:"column:created_by;index;not null"`
	IsPFATC      bool             `gorm:"column:is_pfatc;index"`
	CustomName   string           `gorm:"column:custom_name;size:50"`
	FlightStrips *crypto.Envelope `gorm:"column:flight_strips;type:text"`
	ATIS         *crypto.Envelope `gorm:"column:atis;type:text"`
	CreatedAt    time.Time        `gorm:"column:created_at;index"`
	UpdatedAt    time.Time        `gorm:"column:updated_at"`
}

func (sessionModel) TableName() string { return "sessions" }

type auditLogModel struct {
	ID             int64     `gorm:"column:id;primaryKey;autoIncrement"`
	EventID        string    `gorm:"column:event_id;uniqueIndex;size:36"`
	AdminID        string    `gorm:"column:admin_id;index;not null"`
	AdminUsername  string    `gorm:"column:admin_username"`
	ActionType     string    `gorm:"column:action_type;index;not null"`
	TargetUserID   string    `gorm:"column:target_user_id;index"`
	TargetUsername string    `gorm:"column:target_username"`
	Details        string    `gorm:"column:details;type:jsonb"`
	IPAddress      string    `gorm:"column:ip_address;type:text"`
	UserAgent      string    `gorm:"column:user_agent"`
	CreatedAt      time.Time `gorm:"column:created_at;index"`
}

func (auditLogModel) TableName() string { return "audit_logs" }

type dailyStatisticModel struct {
	Date             time.Time `gorm:"column:date;primaryKey;type:date"`
	LoginsCount      int64     `gorm:"column:logins_count;not null;default:0"`
	NewSessionsCount int64     `gorm:"column:new_sessions_count;not null;default:0"`
	NewFlightsCount  int64     `gorm:"column:new_flights_count;not null;default:0"`
	NewUsersCount    int64     `gorm:"column:new_users_count;not null;default:0"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (dailyStatisticModel) TableName() string { return "daily_statistics" }

type chatReportModel struct {
	ID         string          `gorm:"column:id;primaryKey;size:36"`
	MessageID  string          `gorm:"column:message_id;index"`
	Scope      string          `gorm:"column:scope;size:16"`
	SessionID  string          `gorm:"column:session_id;index"`
	UserID     string          `gorm:"column:user_id;index"`
	Username   string          `gorm:"column:username"`
	Message    crypto.Envelope `gorm:"column:message;type:text"`
	Reason     string          `gorm:"column:reason"`
	ReportedBy string          `gorm:"column:reported_by"`
	Status     string          `gorm:"column:status;index;size:16"`
	ResolvedBy string          `gorm:"column:resolved_by"`
	CreatedAt  time.Time       `gorm:"column:created_at;index"`
}

func (chatReportModel) TableName() string { return "chat_reports" }

// Migrate creates or updates the relational tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&sessionModel{},
		&auditLogModel{},
		&dailyStatisticModel{},
		&chatReportModel{},
	)
}
