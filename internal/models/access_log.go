package models

import "time"

// AdminAuditPrefix marks entries written by administrative actions rather
// than client checks.
const AdminAuditPrefix = "Admin:"

// AccessLog is append-only; rows are never updated after insert.
type AccessLog struct {
	ID uint `gorm:"primarykey" json:"id"`

	LicenseKey string    `gorm:"index;size:50;not null" json:"license_key"`
	Timestamp  time.Time `gorm:"index;not null" json:"timestamp"`
	IPAddress  string    `gorm:"size:45" json:"ip_address"`
	Message    string    `gorm:"size:200" json:"message"`
}
