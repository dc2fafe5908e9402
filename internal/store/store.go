// Package store persists licenses, access logs and admin users with gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rex103240/IronLock-Server/internal/models"
)

var (
	ErrNotFound     = models.ErrLicenseNotFound
	ErrDuplicateKey = errors.New("store: license key already exists")
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Open connects to postgres for postgres:// URLs and to a sqlite file
// otherwise, then migrates the schema.
func Open(databaseURL string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	isSQLite := false

	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		dialector = postgres.Open(databaseURL)
	default:
		dialector = sqlite.Open(strings.TrimPrefix(databaseURL, "sqlite://"))
		isSQLite = true
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:  newGormLogger(),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	if isSQLite {
		// sqlite allows one writer; a single connection avoids SQLITE_BUSY
		// and keeps shared in-memory databases alive.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenMemory opens a private, migrated in-memory sqlite database.
func OpenMemory() (*gorm.DB, error) {
	return Open(fmt.Sprintf("file:ironlock-%s?mode=memory&cache=shared", uuid.NewString()))
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.License{}, &models.AccessLog{}, &models.AdminUser{}); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (*models.License, error) {
	var lic models.License
	if err := s.db.WithContext(ctx).Where("license_key = ?", key).First(&lic).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrLicenseNotFound
		}
		return nil, err
	}
	return &lic, nil
}

func (s *Store) CaptureIdentity(ctx context.Context, key string, fields map[models.IdentityField]string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for field, value := range fields {
			if !field.Valid() {
				return fmt.Errorf("store: unknown identity field %q", field)
			}
			col := string(field)
			err := tx.Model(&models.License{}).
				Where("license_key = ? AND ("+col+" = '' OR "+col+" IS NULL)", key).
				Update(col, value).
				Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) MarkExpired(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Model(&models.License{}).
		Where("license_key = ? AND status = ?", key, models.LicenseStatusActive).
		Update("status", models.LicenseStatusExpired).
		Error
}

func (s *Store) BindHardware(ctx context.Context, key, hardwareID string) (string, error) {
	var bound string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.License{}).
			Where("license_key = ? AND (hardware_id = '' OR hardware_id IS NULL)", key).
			Update("hardware_id", hardwareID).
			Error
		if err != nil {
			return err
		}

		var lic models.License
		if err := tx.Select("hardware_id").Where("license_key = ?", key).First(&lic).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrLicenseNotFound
			}
			return err
		}
		bound = lic.HardwareID
		return nil
	})
	return bound, err
}

func (s *Store) Touch(ctx context.Context, key string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.License{}).
		Where("license_key = ?", key).
		Update("last_check_at", at).
		Error
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
