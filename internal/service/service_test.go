package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rex103240/IronLock-Server/internal/keylock"
	"github.com/rex103240/IronLock-Server/internal/license"
	"github.com/rex103240/IronLock-Server/internal/models"
	"github.com/rex103240/IronLock-Server/internal/store"
	"github.com/rex103240/IronLock-Server/internal/websocket"
)

var testNow = time.Date(2026, 5, 10, 15, 30, 0, 0, time.UTC)

type recorder struct {
	mu            sync.Mutex
	verifications []string
	actions       []string
}

func (r *recorder) ObserveVerification(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifications = append(r.verifications, outcome)
}

func (r *recorder) ObserveAdminAction(action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
}

type notifier struct {
	verifications []websocket.VerificationEvent
	admin         []websocket.AdminEvent
}

func (n *notifier) BroadcastVerification(e websocket.VerificationEvent) {
	n.verifications = append(n.verifications, e)
}

func (n *notifier) BroadcastAdminEvent(e websocket.AdminEvent) {
	n.admin = append(n.admin, e)
}

type fixture struct {
	store    *store.Store
	verify   *VerificationService
	admin    *AdminService
	locker   *keylock.MemoryLocker
	recorder *recorder
	notifier *notifier
}

var operator = Operator{Username: "admin", Address: "198.51.100.4"}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	s := store.New(db)
	clock := func() time.Time { return testNow }
	rec := &recorder{}
	notif := &notifier{}

	locker := keylock.NewMemoryLocker()

	engine := license.NewEngine(s, nil, license.WithClock(clock), license.WithLocker(locker))
	verify := NewVerificationService(engine, s, WithRecorder(rec), WithNotifier(notif), WithClock(clock))
	admin := NewAdminService(s, verify, WithRecorder(rec), WithNotifier(notif), WithClock(clock), WithLocker(locker))

	return &fixture{store: s, verify: verify, admin: admin, locker: locker, recorder: rec, notifier: notif}
}

func (f *fixture) logs(t *testing.T) []store.AccessLogView {
	t.Helper()
	logs, err := f.store.RecentAccessLogs(context.Background(), 0)
	require.NoError(t, err)
	return logs
}

func TestVerifyRecordsAcceptedCheck(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.CreateLicense(context.Background(), &models.License{Key: "K1", ValidUntil: testNow.AddDate(0, 0, 10), GymName: "G"}))

	outcome, err := f.verify.Verify(context.Background(), license.Request{Key: "K1", HardwareID: "H1", SourceAddress: "203.0.113.9"})
	require.NoError(t, err)
	assert.Equal(t, license.KindAccepted, outcome.Kind)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, "Validation Success", logs[0].Message)
	assert.Equal(t, "203.0.113.9", logs[0].IPAddress)

	assert.Equal(t, []string{"accepted"}, f.recorder.verifications)
	require.Len(t, f.notifier.verifications, 1)
	assert.Equal(t, "accepted", f.notifier.verifications[0].Outcome)
}

func TestVerifyRejectionIsCountedButNotAudited(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.verify.Verify(context.Background(), license.Request{Key: "NOPE", HardwareID: "H1"})
	require.NoError(t, err)
	assert.Equal(t, license.KindUnknownKey, outcome.Kind)

	assert.Empty(t, f.logs(t))
	assert.Equal(t, []string{"unknown_key"}, f.recorder.verifications)
	require.Len(t, f.notifier.verifications, 1)
	assert.Equal(t, "Invalid License Key", f.notifier.verifications[0].Message)
}

func TestIssueBatch(t *testing.T) {
	f := newFixture(t)

	issued, err := f.admin.Issue(context.Background(), IssueRequest{Count: 3, Months: 2, Email: " owner@example.com "}, operator)
	require.NoError(t, err)
	require.Len(t, issued, 3)

	for _, lic := range issued {
		assert.True(t, strings.HasPrefix(lic.Key, "IRON-"))
		assert.Equal(t, "2026-07-09", lic.ExpiryDate())
		assert.Equal(t, "owner@example.com", lic.ClientEmail)
		assert.Equal(t, models.LicenseStatusActive, lic.Status)
	}

	logs := f.logs(t)
	require.Len(t, logs, 3)
	for _, l := range logs {
		assert.Equal(t, "Admin: issue", l.Message)
		assert.Equal(t, operator.Address, l.IPAddress)
	}
	assert.Equal(t, []string{"issue", "issue", "issue"}, f.recorder.actions)
	assert.Len(t, f.notifier.admin, 3)
}

func TestIssueValidation(t *testing.T) {
	f := newFixture(t)

	for _, req := range []IssueRequest{
		{Count: 0, Months: 1},
		{Count: MaxBatchSize + 1, Months: 1},
		{Count: 1, Months: 0},
	} {
		_, err := f.admin.Issue(context.Background(), req, operator)
		assert.ErrorIs(t, err, ErrInvalidRequest)
	}
}

func TestCreateWithExplicitKey(t *testing.T) {
	f := newFixture(t)

	lic, err := f.admin.Create(context.Background(), CreateRequest{Key: "IRON-FIXD-FIXD-FIXD", ValidUntil: testNow.AddDate(1, 0, 0)}, operator)
	require.NoError(t, err)
	assert.Equal(t, "2027-05-10", lic.ExpiryDate())

	_, err = f.admin.Create(context.Background(), CreateRequest{Key: "IRON-FIXD-FIXD-FIXD", ValidUntil: testNow}, operator)
	assert.ErrorIs(t, err, store.ErrDuplicateKey)

	_, err = f.admin.Create(context.Background(), CreateRequest{Key: " ", ValidUntil: testNow}, operator)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestLifecycleActions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateLicense(ctx, &models.License{Key: "K1", ValidUntil: testNow.AddDate(0, 0, 1), GymName: "G"}))

	require.NoError(t, f.admin.Suspend(ctx, "K1", operator))
	outcome, err := f.verify.Verify(ctx, license.Request{Key: "K1", HardwareID: "H1"})
	require.NoError(t, err)
	assert.Equal(t, license.KindSuspended, outcome.Kind)

	require.NoError(t, f.admin.Activate(ctx, "K1", operator))
	outcome, err = f.verify.Verify(ctx, license.Request{Key: "K1", HardwareID: "H1"})
	require.NoError(t, err)
	assert.Equal(t, license.KindAccepted, outcome.Kind)

	outcome, err = f.verify.Verify(ctx, license.Request{Key: "K1", HardwareID: "H2"})
	require.NoError(t, err)
	assert.Equal(t, license.KindHardwareMismatch, outcome.Kind)

	require.NoError(t, f.admin.ResetHardware(ctx, "K1", operator))
	outcome, err = f.verify.Verify(ctx, license.Request{Key: "K1", HardwareID: "H2"})
	require.NoError(t, err)
	assert.Equal(t, license.KindAccepted, outcome.Kind)

	extended, err := f.admin.Extend(ctx, "K1", 0, operator)
	require.NoError(t, err)
	assert.Equal(t, "2026-06-10", extended.ExpiryDate())
	assert.Equal(t, models.LicenseStatusActive, extended.Status)

	messages := map[string]bool{}
	for _, l := range f.logs(t) {
		messages[l.Message] = true
	}
	for _, want := range []string{"Admin: suspend", "Admin: activate", "Admin: reset_hwid", "Admin: extend +30d", "Validation Success"} {
		assert.True(t, messages[want], "missing audit entry %q", want)
	}
}

func TestExtendKeepsSuspension(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateLicense(ctx, &models.License{Key: "K1", ValidUntil: testNow, GymName: "G"}))
	require.NoError(t, f.admin.Suspend(ctx, "K1", operator))

	extended, err := f.admin.Extend(ctx, "K1", 10, operator)
	require.NoError(t, err)
	assert.Equal(t, models.LicenseStatusSuspended, extended.Status)
	assert.Equal(t, "2026-05-20", extended.ExpiryDate())

	outcome, err := f.verify.Verify(ctx, license.Request{Key: "K1", HardwareID: "H1"})
	require.NoError(t, err)
	assert.Equal(t, license.KindSuspended, outcome.Kind)
}

func TestExtendRevivesExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateLicense(ctx, &models.License{Key: "K1", ValidUntil: testNow.AddDate(0, 0, -1), GymName: "G"}))

	outcome, err := f.verify.Verify(ctx, license.Request{Key: "K1", HardwareID: "H1"})
	require.NoError(t, err)
	require.Equal(t, license.KindExpired, outcome.Kind)

	extended, err := f.admin.Extend(ctx, "K1", 0, operator)
	require.NoError(t, err)
	assert.Equal(t, models.LicenseStatusActive, extended.Status)

	outcome, err = f.verify.Verify(ctx, license.Request{Key: "K1", HardwareID: "H1"})
	require.NoError(t, err)
	assert.Equal(t, license.KindAccepted, outcome.Kind)
}

func TestAdminActionsWaitForKeyLock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateLicense(ctx, &models.License{Key: "K1", ValidUntil: testNow.AddDate(0, 0, 5), GymName: "G"}))

	unlock, err := f.locker.Lock(ctx, "K1")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.admin.Suspend(waitCtx, "K1", operator), keylock.ErrLockTimeout)
	assert.ErrorIs(t, f.admin.ResetHardware(waitCtx, "K1", operator), keylock.ErrLockTimeout)

	lic, err := f.store.Get(ctx, "K1")
	require.NoError(t, err)
	assert.Equal(t, models.LicenseStatusActive, lic.Status)
	assert.Empty(t, f.logs(t))

	done := make(chan error, 1)
	go func() { done <- f.admin.Suspend(ctx, "K1", operator) }()

	select {
	case err := <-done:
		t.Fatalf("suspend finished while the key was locked: %v", err)
	case <-time.After(30 * time.Millisecond):
	}

	unlock()
	require.NoError(t, <-done)

	lic, err = f.store.Get(ctx, "K1")
	require.NoError(t, err)
	assert.Equal(t, models.LicenseStatusSuspended, lic.Status)
}

func TestActionsOnUnknownKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.admin.Suspend(ctx, "NOPE", operator), store.ErrNotFound)
	assert.ErrorIs(t, f.admin.Activate(ctx, "NOPE", operator), store.ErrNotFound)
	assert.ErrorIs(t, f.admin.ResetHardware(ctx, "NOPE", operator), store.ErrNotFound)
	_, err := f.admin.Extend(ctx, "NOPE", 10, operator)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = f.admin.Extend(ctx, "NOPE", -1, operator)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	assert.Empty(t, f.logs(t))
}

func TestDiagnoseUsesDiagnosticLabel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateLicense(ctx, &models.License{Key: "K1", ValidUntil: testNow.AddDate(0, 0, 1), GymName: "G"}))

	outcome, err := f.admin.Diagnose(ctx, "K1", "H1", operator)
	require.NoError(t, err)
	assert.Equal(t, license.KindAccepted, outcome.Kind)

	logs := f.logs(t)
	require.Len(t, logs, 1)
	assert.Equal(t, "Admin Diagnostic", logs[0].Message)
	assert.Equal(t, operator.Address, logs[0].IPAddress)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.admin.Issue(ctx, IssueRequest{Count: 2, Months: 1, GymName: "Iron Temple"}, operator)
	require.NoError(t, err)

	stats, err := f.admin.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.TotalLicenses)
	assert.EqualValues(t, 2, stats.ActiveLicenses)
	assert.True(t, stats.SignerDegraded)

	gyms, err := f.admin.Gyms(ctx)
	require.NoError(t, err)
	assert.Len(t, gyms, 2)

	list, err := f.admin.List(ctx, "temple", 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
