package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/rex103240/IronLock-Server/internal/models"
)

var ErrAdminNotFound = errors.New("store: admin user not found")

func (s *Store) FindAdminByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	var user models.AdminUser
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *Store) FindAdminByID(ctx context.Context, id uint) (*models.AdminUser, error) {
	var user models.AdminUser
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, err
	}
	return &user, nil
}

// EnsureAdmin creates the admin account when missing. An existing account
// keeps its password; it is only reactivated.
func (s *Store) EnsureAdmin(ctx context.Context, username, password string) (created bool, err error) {
	existing, err := s.FindAdminByUsername(ctx, username)
	switch {
	case err == nil:
		if !existing.Active {
			return false, s.db.WithContext(ctx).Model(existing).Update("active", true).Error
		}
		return false, nil
	case !errors.Is(err, ErrAdminNotFound):
		return false, err
	}

	if password == "" {
		return false, errors.New("store: admin password required to seed admin user")
	}

	user := &models.AdminUser{Username: username, Password: password, Active: true}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) UpdateAdminPassword(ctx context.Context, id uint, password string) error {
	user, err := s.FindAdminByID(ctx, id)
	if err != nil {
		return err
	}
	user.Password = password
	return s.db.WithContext(ctx).Save(user).Error
}
