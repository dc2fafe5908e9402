package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rex103240/IronLock-Server/internal/keygen"
	"github.com/rex103240/IronLock-Server/internal/license"
	"github.com/rex103240/IronLock-Server/internal/logging"
	"github.com/rex103240/IronLock-Server/internal/models"
	"github.com/rex103240/IronLock-Server/internal/store"
	"github.com/rex103240/IronLock-Server/internal/websocket"
)

const (
	MaxBatchSize       = 100
	DaysPerMonth       = 30
	DefaultExtendDays  = 30
	maxKeyGenAttempts  = 5
	defaultListLimit   = 200
	mostActiveLicenses = 10
)

var ErrInvalidRequest = errors.New("invalid request")

// Action is the closed set of administrative mutations.
type Action string

const (
	ActionIssue    Action = "issue"
	ActionCreate   Action = "create"
	ActionActivate Action = "activate"
	ActionSuspend  Action = "suspend"
	ActionExtend   Action = "extend"
	ActionResetHW  Action = "reset_hwid"
)

// Operator identifies who performed an admin action and from where.
type Operator struct {
	Username string
	Address  string
}

type IssueRequest struct {
	Count   int
	Months  int
	Email   string
	GymName string
	Prefix  string
}

type CreateRequest struct {
	Key        string
	ValidUntil time.Time
	Email      string
	GymName    string
}

type Stats struct {
	*store.DashboardStats
	MostActive     []store.LicenseActivity `json:"most_active"`
	SignerDegraded bool                    `json:"signer_degraded"`
}

type AdminService struct {
	store    Store
	verifier *VerificationService
	opts     options
}

func NewAdminService(store Store, verifier *VerificationService, opts ...Option) *AdminService {
	return &AdminService{store: store, verifier: verifier, opts: buildOptions(opts)}
}

// Issue creates Count fresh keys valid for Months*30 days from today.
func (s *AdminService) Issue(ctx context.Context, req IssueRequest, op Operator) ([]models.License, error) {
	if req.Count < 1 || req.Count > MaxBatchSize {
		return nil, fmt.Errorf("%w: count must be between 1 and %d", ErrInvalidRequest, MaxBatchSize)
	}
	if req.Months < 1 {
		return nil, fmt.Errorf("%w: months must be positive", ErrInvalidRequest)
	}

	validUntil := models.CivilDate(s.opts.now()).AddDate(0, 0, DaysPerMonth*req.Months)
	issued := make([]models.License, 0, req.Count)

	for i := 0; i < req.Count; i++ {
		lic, err := s.createWithFreshKey(ctx, req, validUntil)
		if err != nil {
			return issued, err
		}
		if err := s.audit(ctx, lic.Key, ActionIssue, "", op); err != nil {
			return issued, err
		}
		issued = append(issued, *lic)
	}

	log.Info().Int("count", len(issued)).Str("valid_until", validUntil.Format(models.DateLayout)).Str("operator", op.Username).Msg("licenses issued")
	return issued, nil
}

func (s *AdminService) createWithFreshKey(ctx context.Context, req IssueRequest, validUntil time.Time) (*models.License, error) {
	for attempt := 0; attempt < maxKeyGenAttempts; attempt++ {
		key, err := keygen.Generate(req.Prefix)
		if err != nil {
			return nil, err
		}

		lic := &models.License{
			Key:         key,
			ValidUntil:  validUntil,
			ClientEmail: strings.TrimSpace(req.Email),
			GymName:     strings.TrimSpace(req.GymName),
		}
		err = s.store.CreateLicense(ctx, lic)
		if errors.Is(err, store.ErrDuplicateKey) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return lic, nil
	}
	return nil, fmt.Errorf("could not generate a unique key after %d attempts", maxKeyGenAttempts)
}

// Create issues a license under a caller-chosen key.
func (s *AdminService) Create(ctx context.Context, req CreateRequest, op Operator) (*models.License, error) {
	key := strings.TrimSpace(req.Key)
	if key == "" {
		return nil, fmt.Errorf("%w: key is required", ErrInvalidRequest)
	}
	if req.ValidUntil.IsZero() {
		return nil, fmt.Errorf("%w: valid_until is required", ErrInvalidRequest)
	}

	lic := &models.License{
		Key:         key,
		ValidUntil:  req.ValidUntil,
		ClientEmail: strings.TrimSpace(req.Email),
		GymName:     strings.TrimSpace(req.GymName),
	}
	if err := s.store.CreateLicense(ctx, lic); err != nil {
		return nil, err
	}
	if err := s.audit(ctx, key, ActionCreate, "", op); err != nil {
		return nil, err
	}
	return lic, nil
}

func (s *AdminService) Activate(ctx context.Context, key string, op Operator) error {
	return s.withKey(ctx, key, func() error {
		if err := s.store.SetStatus(ctx, key, models.LicenseStatusActive); err != nil {
			return err
		}
		return s.audit(ctx, key, ActionActivate, "", op)
	})
}

func (s *AdminService) Suspend(ctx context.Context, key string, op Operator) error {
	return s.withKey(ctx, key, func() error {
		if err := s.store.SetStatus(ctx, key, models.LicenseStatusSuspended); err != nil {
			return err
		}
		return s.audit(ctx, key, ActionSuspend, "", op)
	})
}

// Extend adds days (DefaultExtendDays when zero) to the expiry. Expired
// licenses become active again; suspended ones stay suspended.
func (s *AdminService) Extend(ctx context.Context, key string, days int, op Operator) (*models.License, error) {
	if days == 0 {
		days = DefaultExtendDays
	}
	if days < 0 {
		return nil, fmt.Errorf("%w: days must be positive", ErrInvalidRequest)
	}

	var lic *models.License
	err := s.withKey(ctx, key, func() error {
		var err error
		lic, err = s.store.ExtendValidity(ctx, key, days)
		if err != nil {
			return err
		}
		return s.audit(ctx, key, ActionExtend, fmt.Sprintf("+%dd", days), op)
	})
	if err != nil {
		return nil, err
	}
	return lic, nil
}

func (s *AdminService) ResetHardware(ctx context.Context, key string, op Operator) error {
	return s.withKey(ctx, key, func() error {
		if err := s.store.ResetHardware(ctx, key); err != nil {
			return err
		}
		return s.audit(ctx, key, ActionResetHW, "", op)
	})
}

func (s *AdminService) withKey(ctx context.Context, key string, fn func() error) error {
	unlock, err := s.opts.locker.Lock(ctx, key)
	if err != nil {
		return fmt.Errorf("lock %s: %w", logging.MaskKey(key), err)
	}
	defer unlock()
	return fn()
}

// Diagnose runs a full verification on the operator's behalf. It mutates
// state exactly like a client check would. The engine takes the key lock
// itself, so Diagnose must not hold it.
func (s *AdminService) Diagnose(ctx context.Context, key, hardwareID string, op Operator) (*license.Outcome, error) {
	return s.verifier.Verify(ctx, license.Request{
		Key:           key,
		HardwareID:    hardwareID,
		SourceAddress: op.Address,
		Message:       license.DiagnosticAuditMessage,
	})
}

func (s *AdminService) Get(ctx context.Context, key string) (*models.License, error) {
	return s.store.Get(ctx, key)
}

func (s *AdminService) List(ctx context.Context, search string, limit int) ([]models.License, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.store.ListLicenses(ctx, search, limit)
}

func (s *AdminService) Gyms(ctx context.Context) ([]models.License, error) {
	return s.store.RegisteredGyms(ctx)
}

func (s *AdminService) Logs(ctx context.Context, limit int) ([]store.AccessLogView, error) {
	return s.store.RecentAccessLogs(ctx, limit)
}

func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	now := s.opts.now().UTC()

	dashboard, err := s.store.DashboardStats(ctx, now)
	if err != nil {
		return nil, err
	}
	active, err := s.store.MostActiveLicenses(ctx, mostActiveLicenses, now.Add(-24*time.Hour), now)
	if err != nil {
		return nil, err
	}

	return &Stats{
		DashboardStats: dashboard,
		MostActive:     active,
		SignerDegraded: s.verifier != nil && s.verifier.SignerDegraded(),
	}, nil
}

func (s *AdminService) audit(ctx context.Context, key string, action Action, detail string, op Operator) error {
	message := models.AdminAuditPrefix + " " + string(action)
	if detail != "" {
		message += " " + detail
	}

	now := s.opts.now().UTC()
	entry := &models.AccessLog{
		LicenseKey: key,
		Timestamp:  now,
		IPAddress:  op.Address,
		Message:    message,
	}
	if err := s.store.AppendAccessLog(ctx, entry); err != nil {
		return fmt.Errorf("append admin audit: %w", err)
	}

	s.opts.recorder.ObserveAdminAction(string(action))
	log.Info().
		Str("license_key", logging.MaskKey(key)).
		Str("action", string(action)).
		Str("operator", op.Username).
		Str("source", op.Address).
		Msg("admin action")

	s.opts.notifier.BroadcastAdminEvent(websocket.AdminEvent{
		LicenseKey: key,
		Action:     string(action),
		Detail:     detail,
		Operator:   op.Username,
		Timestamp:  now.Format(time.RFC3339),
	})
	return nil
}
