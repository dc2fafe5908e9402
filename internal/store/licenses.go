package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/rex103240/IronLock-Server/internal/models"
)

func (s *Store) CreateLicense(ctx context.Context, lic *models.License) error {
	if lic.Status == "" {
		lic.Status = models.LicenseStatusActive
	}
	lic.ValidUntil = models.CivilDate(lic.ValidUntil)

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "license_key"}}, DoNothing: true}).
		Create(lic)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDuplicateKey
	}
	return nil
}

func (s *Store) SetStatus(ctx context.Context, key string, status models.LicenseStatus) error {
	if !status.Valid() {
		return fmt.Errorf("store: invalid license status %q", status)
	}
	return s.updateOne(ctx, key, map[string]interface{}{"status": status})
}

// ExtendValidity pushes validUntil forward by days. An expired license is
// reactivated; a suspended one stays suspended.
func (s *Store) ExtendValidity(ctx context.Context, key string, days int) (*models.License, error) {
	var lic models.License
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("license_key = ?", key).First(&lic).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		lic.ValidUntil = models.CivilDate(lic.ValidUntil).AddDate(0, 0, days)
		values := map[string]interface{}{"valid_until": lic.ValidUntil}
		if lic.Status == models.LicenseStatusExpired {
			lic.Status = models.LicenseStatusActive
			values["status"] = lic.Status
		}
		return tx.Model(&models.License{}).
			Where("license_key = ?", key).
			Updates(values).
			Error
	})
	if err != nil {
		return nil, err
	}
	return &lic, nil
}

func (s *Store) ResetHardware(ctx context.Context, key string) error {
	return s.updateOne(ctx, key, map[string]interface{}{"hardware_id": ""})
}

func (s *Store) updateOne(ctx context.Context, key string, values map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&models.License{}).Where("license_key = ?", key).Updates(values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListLicenses returns licenses newest first, optionally filtered by a
// case-insensitive match on key, gym name or client email.
func (s *Store) ListLicenses(ctx context.Context, search string, limit int) ([]models.License, error) {
	query := s.db.WithContext(ctx).Model(&models.License{}).Order("id DESC")

	if term := strings.ToLower(strings.TrimSpace(search)); term != "" {
		like := "%" + term + "%"
		query = query.Where("LOWER(license_key) LIKE ? OR LOWER(gym_name) LIKE ? OR LOWER(client_email) LIKE ?", like, like, like)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var licenses []models.License
	if err := query.Find(&licenses).Error; err != nil {
		return nil, err
	}
	return licenses, nil
}

// RegisteredGyms lists licenses that have captured a gym name.
func (s *Store) RegisteredGyms(ctx context.Context) ([]models.License, error) {
	var licenses []models.License
	err := s.db.WithContext(ctx).
		Where("gym_name <> ''").
		Order("gym_name ASC").
		Find(&licenses).
		Error
	if err != nil {
		return nil, err
	}
	return licenses, nil
}
