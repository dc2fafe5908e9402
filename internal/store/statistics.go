package store

import (
	"context"
	"time"

	"github.com/rex103240/IronLock-Server/internal/models"
)

type DashboardStats struct {
	TotalLicenses     int64 `json:"total_licenses"`
	ActiveLicenses    int64 `json:"active_licenses"`
	SuspendedLicenses int64 `json:"suspended_licenses"`
	ExpiredLicenses   int64 `json:"expired_licenses"`
	HardwareLocked    int64 `json:"hardware_locked"`
	NewLast30Days     int64 `json:"new_last_30_days"`
	ChecksLast24Hours int64 `json:"checks_last_24_hours"`
}

type LicenseActivity struct {
	LicenseKey  string `json:"license_key"`
	GymName     string `json:"gym_name"`
	TotalChecks int    `json:"total_checks"`
}

func (s *Store) DashboardStats(ctx context.Context, now time.Time) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &DashboardStats{}

	counts := []struct {
		dest  *int64
		query string
		args  []interface{}
	}{
		{&stats.TotalLicenses, "", nil},
		{&stats.ActiveLicenses, "status = ?", []interface{}{models.LicenseStatusActive}},
		{&stats.SuspendedLicenses, "status = ?", []interface{}{models.LicenseStatusSuspended}},
		{&stats.ExpiredLicenses, "status = ?", []interface{}{models.LicenseStatusExpired}},
		{&stats.HardwareLocked, "hardware_id <> ''", nil},
		{&stats.NewLast30Days, "created_at >= ?", []interface{}{now.AddDate(0, 0, -30)}},
	}
	for _, c := range counts {
		query := db.Model(&models.License{})
		if c.query != "" {
			query = query.Where(c.query, c.args...)
		}
		if err := query.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	if err := db.Model(&models.AccessLog{}).
		Where("timestamp >= ?", now.Add(-24*time.Hour)).
		Where("message NOT LIKE ?", models.AdminAuditPrefix+"%").
		Count(&stats.ChecksLast24Hours).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// MostActiveLicenses ranks licenses by client checks in [start, end].
// Administrative audit entries are not counted.
func (s *Store) MostActiveLicenses(ctx context.Context, limit int, start, end time.Time) ([]LicenseActivity, error) {
	var results []LicenseActivity

	if err := s.db.WithContext(ctx).Table("access_logs").
		Select("access_logs.license_key, COALESCE(licenses.gym_name, '') as gym_name, "+
			"COUNT(*) as total_checks").
		Joins("LEFT JOIN licenses ON licenses.license_key = access_logs.license_key").
		Where("access_logs.timestamp BETWEEN ? AND ?", start, end).
		Where("access_logs.message NOT LIKE ?", models.AdminAuditPrefix+"%").
		Group("access_logs.license_key, licenses.gym_name").
		Order("total_checks DESC").
		Limit(limit).
		Scan(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}
