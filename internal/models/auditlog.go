package models

import "time"

// Audit actions.
const (
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
	ActionSignup = "SIGNUP"
	ActionLogin  = "LOGIN"
)

// SentinelID marks an unknown entity or an unauthenticated actor.
const SentinelID = -1

// AuditLog records a security-relevant action. Rows are append-only:
// nothing in the codebase updates or deletes them.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Action    string    `gorm:"size:16;not null" json:"action"`
	Entity    string    `gorm:"size:32;not null" json:"entity"`
	EntityID  int       `gorm:"not null" json:"entityId"`
	UserID    int       `gorm:"not null" json:"userId"` // acting user, not the target
	Username  string    `gorm:"size:15;not null" json:"username"`
	Role      string    `gorm:"size:8;not null" json:"role"`
	IPAddress string    `gorm:"size:64" json:"ipAddress"`
	Details   string    `gorm:"size:255" json:"details"`
	Timestamp time.Time `gorm:"autoCreateTime" json:"timestamp"`
}
