// Package service ties the verification engine to the audit log, metrics
// and live event feed, and hosts the fixed set of admin operations.
package service

import (
	"context"
	"time"

	"github.com/rex103240/IronLock-Server/internal/keylock"
	"github.com/rex103240/IronLock-Server/internal/license"
	"github.com/rex103240/IronLock-Server/internal/models"
	"github.com/rex103240/IronLock-Server/internal/store"
	"github.com/rex103240/IronLock-Server/internal/websocket"
)

// Store is what the services need beyond the engine's own port.
type Store interface {
	Get(ctx context.Context, key string) (*models.License, error)
	AppendAccessLog(ctx context.Context, entry *models.AccessLog) error
	RecentAccessLogs(ctx context.Context, limit int) ([]store.AccessLogView, error)
	CreateLicense(ctx context.Context, lic *models.License) error
	SetStatus(ctx context.Context, key string, status models.LicenseStatus) error
	ExtendValidity(ctx context.Context, key string, days int) (*models.License, error)
	ResetHardware(ctx context.Context, key string) error
	ListLicenses(ctx context.Context, search string, limit int) ([]models.License, error)
	RegisteredGyms(ctx context.Context) ([]models.License, error)
	DashboardStats(ctx context.Context, now time.Time) (*store.DashboardStats, error)
	MostActiveLicenses(ctx context.Context, limit int, start, end time.Time) ([]store.LicenseActivity, error)
}

type Recorder interface {
	ObserveVerification(outcome string)
	ObserveAdminAction(action string)
}

type Notifier interface {
	BroadcastVerification(event websocket.VerificationEvent)
	BroadcastAdminEvent(event websocket.AdminEvent)
}

type nopRecorder struct{}

func (nopRecorder) ObserveVerification(string) {}
func (nopRecorder) ObserveAdminAction(string)  {}

type nopNotifier struct{}

func (nopNotifier) BroadcastVerification(websocket.VerificationEvent) {}
func (nopNotifier) BroadcastAdminEvent(websocket.AdminEvent)          {}

type Option func(*options)

type options struct {
	recorder Recorder
	notifier Notifier
	locker   license.Locker
	now      func() time.Time
}

func WithRecorder(r Recorder) Option {
	return func(o *options) {
		if r != nil {
			o.recorder = r
		}
	}
}

func WithNotifier(n Notifier) Option {
	return func(o *options) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithLocker shares the engine's per-key lock so admin mutations are
// ordered against in-flight checks.
func WithLocker(l license.Locker) Option {
	return func(o *options) {
		if l != nil {
			o.locker = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{
		recorder: nopRecorder{},
		notifier: nopNotifier{},
		locker:   keylock.NewMemoryLocker(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
