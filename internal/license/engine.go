package license

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/rex103240/IronLock-Server/internal/keylock"
	"github.com/rex103240/IronLock-Server/internal/logging"
	"github.com/rex103240/IronLock-Server/internal/models"
)

var ErrStoreUnavailable = errors.New("license: record store unavailable")

const (
	DefaultAuditMessage    = "Validation Success"
	DiagnosticAuditMessage = "Admin Diagnostic"
)

// Store is the record store as seen by the engine. Every mutation must be a
// conditional update that is atomic with respect to its own read.
type Store interface {
	Get(ctx context.Context, key string) (*models.License, error)
	// CaptureIdentity sets each field only where the stored value is still empty.
	CaptureIdentity(ctx context.Context, key string, fields map[models.IdentityField]string) error
	MarkExpired(ctx context.Context, key string) error
	// BindHardware sets the hardware id if none is bound and returns the
	// value bound after the call, whoever won.
	BindHardware(ctx context.Context, key, hardwareID string) (string, error)
	Touch(ctx context.Context, key string, at time.Time) error
}

// Locker serializes verification of a single license key.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type Request struct {
	Key           string
	HardwareID    string
	Claims        Claims
	SourceAddress string
	// Message overrides the audit label; used by administrative callers.
	Message string
}

type Engine struct {
	store  Store
	signer Signer
	locker Locker
	now    func() time.Time
}

type Option func(*Engine)

func WithLocker(locker Locker) Option {
	return func(e *Engine) { e.locker = locker }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store Store, signer Signer, opts ...Option) *Engine {
	if signer == nil {
		signer = NoopSigner{}
	}
	e := &Engine{
		store:  store,
		signer: signer,
		locker: keylock.NewMemoryLocker(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) SignerDegraded() bool {
	return e.signer.Degraded()
}

// Verify runs one license check. Business-rule failures come back as
// outcome kinds; an error means the store, lock or signer failed.
func (e *Engine) Verify(ctx context.Context, req Request) (*Outcome, error) {
	key := strings.TrimSpace(req.Key)
	hardwareID := strings.TrimSpace(req.HardwareID)
	if key == "" || hardwareID == "" {
		return newOutcome(KindMissingInput), nil
	}

	unlock, err := e.locker.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: lock %s: %w", ErrStoreUnavailable, logging.MaskKey(key), err)
	}
	defer unlock()

	record, err := e.store.Get(ctx, key)
	if errors.Is(err, models.ErrLicenseNotFound) {
		return newOutcome(KindUnknownKey), nil
	}
	if err != nil {
		return nil, storeError("load", err)
	}

	switch record.Status {
	case models.LicenseStatusActive:
	case models.LicenseStatusExpired:
		return newOutcome(KindExpired), nil
	default:
		return newOutcome(KindSuspended), nil
	}

	now := e.now().UTC()
	today := models.CivilDate(now)

	if record.ExpiredOn(today) {
		if err := e.store.MarkExpired(ctx, key); err != nil {
			return nil, storeError("mark expired", err)
		}
		log.Info().Str("license_key", logging.MaskKey(key)).Str("valid_until", record.ExpiryDate()).Msg("license expired")
		return newOutcome(KindExpired), nil
	}

	updated, captured := CaptureIdentity(*record, req.Claims)
	if len(captured) > 0 {
		if err := e.store.CaptureIdentity(ctx, key, captured); err != nil {
			return nil, storeError("capture identity", err)
		}
	}

	// Registration is checked before hardware binding so an unclaimed key
	// never consumes its single hardware slot.
	if NeedsRegistration(updated) {
		return newOutcome(KindNeedsRegistration), nil
	}

	bound := updated.HardwareID
	if !updated.HardwareLocked() {
		bound, err = e.store.BindHardware(ctx, key, hardwareID)
		if err != nil {
			return nil, storeError("bind hardware", err)
		}
		if bound == hardwareID {
			log.Info().Str("license_key", logging.MaskKey(key)).Msg("hardware bound")
		}
	}
	if bound != hardwareID {
		return newOutcome(KindHardwareMismatch), nil
	}

	if err := e.store.Touch(ctx, key, now); err != nil {
		return nil, storeError("touch", err)
	}

	message := DefaultAuditMessage
	if !isBlank(req.Message) {
		message = strings.TrimSpace(req.Message)
	}

	outcome := newOutcome(KindAccepted)
	outcome.GymName = updated.GymName
	outcome.DaysRemaining = updated.DaysRemaining(today)
	outcome.ExpiryDate = updated.ExpiryDate()
	outcome.Audit = &models.AccessLog{
		LicenseKey: key,
		Timestamp:  now,
		IPAddress:  req.SourceAddress,
		Message:    message,
	}

	signature, err := e.signer.Sign(key, hardwareID, updated.ValidUntil)
	switch {
	case err == nil:
		outcome.Signature = signature
	case errors.Is(err, ErrSignerUnavailable):
	default:
		return nil, err
	}

	return outcome, nil
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
