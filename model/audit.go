package model

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog records one slash-command invocation.
type AuditLog struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TraceID    string         `gorm:"index:idx_audit_trace;size:128;not null" json:"trace_id"`
	GuildID    int64          `gorm:"index:idx_audit_guild" json:"guild_id"`
	UserID     int64          `gorm:"index:idx_audit_user" json:"user_id"`
	Command    string         `gorm:"size:64;not null" json:"command"`
	Options    datatypes.JSON `json:"options"`
	Outcome    string         `gorm:"size:32" json:"outcome"`
	Error      string         `gorm:"type:text" json:"error"`
	DurationMs int            `json:"duration_ms"`
	CreatedAt  time.Time      `gorm:"index:idx_audit_created;autoCreateTime:milli" json:"created_at"`
}
