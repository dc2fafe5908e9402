package store

import (
	"context"
	"time"

	"github.com/rex103240/IronLock-Server/internal/models"
)

const DefaultLogLimit = 100

type AccessLogView struct {
	ID         uint      `json:"id"`
	LicenseKey string    `json:"license_key"`
	GymName    string    `json:"gym_name"`
	Timestamp  time.Time `json:"timestamp"`
	IPAddress  string    `json:"ip_address"`
	Message    string    `json:"message"`
}

func (s *Store) AppendAccessLog(ctx context.Context, entry *models.AccessLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *Store) RecentAccessLogs(ctx context.Context, limit int) ([]AccessLogView, error) {
	if limit <= 0 {
		limit = DefaultLogLimit
	}

	var logs []AccessLogView
	err := s.db.WithContext(ctx).Table("access_logs").
		Select("access_logs.id, access_logs.license_key, COALESCE(licenses.gym_name, '') as gym_name, " +
			"access_logs.timestamp, access_logs.ip_address, access_logs.message").
		Joins("LEFT JOIN licenses ON licenses.license_key = access_logs.license_key").
		Order("access_logs.timestamp DESC, access_logs.id DESC").
		Limit(limit).
		Scan(&logs).
		Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
