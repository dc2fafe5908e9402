package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AdminUser struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username string `gorm:"uniqueIndex;size:80;not null" json:"username"`
	Password string `gorm:"size:200;not null" json:"-"`
	Active   bool   `gorm:"not null;default:true" json:"active"`
}

func (u *AdminUser) BeforeSave(tx *gorm.DB) error {
	if u.Password == "" {
		return nil
	}
	if _, err := bcrypt.Cost([]byte(u.Password)); err == nil {
		return nil
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

func (u *AdminUser) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}
