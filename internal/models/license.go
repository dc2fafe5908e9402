package models

import (
	"errors"
	"strings"
	"time"
)

var ErrLicenseNotFound = errors.New("license not found")

const DateLayout = "2006-01-02"

type LicenseStatus string

const (
	LicenseStatusActive    LicenseStatus = "active"
	LicenseStatusSuspended LicenseStatus = "suspended"
	LicenseStatusExpired   LicenseStatus = "expired"
)

func (s LicenseStatus) Valid() bool {
	switch s {
	case LicenseStatusActive, LicenseStatusSuspended, LicenseStatusExpired:
		return true
	}
	return false
}

// IdentityField names a client-claimed column that is bound at most once.
type IdentityField string

const (
	FieldGymName        IdentityField = "gym_name"
	FieldClientEmail    IdentityField = "client_email"
	FieldAddress        IdentityField = "address"
	FieldPhone          IdentityField = "phone"
	FieldAdditionalInfo IdentityField = "additional_info"
)

func (f IdentityField) Valid() bool {
	switch f {
	case FieldGymName, FieldClientEmail, FieldAddress, FieldPhone, FieldAdditionalInfo:
		return true
	}
	return false
}

type License struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Key        string        `gorm:"column:license_key;uniqueIndex;size:50;not null" json:"key"`
	Status     LicenseStatus `gorm:"size:20;not null;default:'active'" json:"status"`
	ValidUntil time.Time     `gorm:"type:date;not null" json:"valid_until"`
	HardwareID string        `gorm:"size:100;not null;default:''" json:"hardware_id"`

	GymName        string `gorm:"size:100;not null;default:''" json:"gym_name"`
	ClientEmail    string `gorm:"size:120;not null;default:''" json:"client_email"`
	Address        string `gorm:"not null;default:''" json:"address"`
	Phone          string `gorm:"size:50;not null;default:''" json:"phone"`
	AdditionalInfo string `gorm:"not null;default:''" json:"additional_info"`

	LastCheckAt *time.Time `json:"last_check_at"`
}

func (l *License) HardwareLocked() bool {
	return strings.TrimSpace(l.HardwareID) != ""
}

// ExpiredOn reports whether the license was already past its last valid
// day on the given calendar date.
func (l *License) ExpiredOn(today time.Time) bool {
	return CivilDate(l.ValidUntil).Before(CivilDate(today))
}

func (l *License) DaysRemaining(today time.Time) int {
	return int(CivilDate(l.ValidUntil).Sub(CivilDate(today)).Hours() / 24)
}

func (l *License) ExpiryDate() string {
	return CivilDate(l.ValidUntil).Format(DateLayout)
}

// CivilDate truncates t to midnight UTC of its UTC calendar date.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, err
	}
	return CivilDate(t), nil
}
