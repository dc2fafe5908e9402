package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rex103240/IronLock-Server/internal/license"
	"github.com/rex103240/IronLock-Server/internal/logging"
	"github.com/rex103240/IronLock-Server/internal/websocket"
)

const outcomeError = "error"

type VerificationService struct {
	engine *license.Engine
	store  Store
	opts   options
}

func NewVerificationService(engine *license.Engine, store Store, opts ...Option) *VerificationService {
	return &VerificationService{engine: engine, store: store, opts: buildOptions(opts)}
}

func (s *VerificationService) SignerDegraded() bool {
	return s.engine.SignerDegraded()
}

// Verify runs the engine and records what it decided: the audit entry for
// accepted checks, a log line and counter for every outcome, and a live
// event for connected admins.
func (s *VerificationService) Verify(ctx context.Context, req license.Request) (*license.Outcome, error) {
	outcome, err := s.engine.Verify(ctx, req)
	if err != nil {
		s.opts.recorder.ObserveVerification(outcomeError)
		log.Error().Err(err).Str("license_key", logging.MaskKey(req.Key)).Msg("verification failed")
		return nil, err
	}

	if outcome.Audit != nil {
		if err := s.store.AppendAccessLog(ctx, outcome.Audit); err != nil {
			s.opts.recorder.ObserveVerification(outcomeError)
			log.Error().Err(err).Str("license_key", logging.MaskKey(req.Key)).Msg("append access log")
			return nil, fmt.Errorf("%w: append access log: %w", license.ErrStoreUnavailable, err)
		}
	}

	s.opts.recorder.ObserveVerification(string(outcome.Kind))
	logOutcome(req, outcome)

	timestamp := s.opts.now().UTC()
	if outcome.Audit != nil {
		timestamp = outcome.Audit.Timestamp
	}
	s.opts.notifier.BroadcastVerification(websocket.VerificationEvent{
		LicenseKey: req.Key,
		GymName:    outcome.GymName,
		Outcome:    string(outcome.Kind),
		Message:    outcome.Message,
		IPAddress:  req.SourceAddress,
		Timestamp:  timestamp.Format(time.RFC3339),
	})

	return outcome, nil
}

func logOutcome(req license.Request, outcome *license.Outcome) {
	var event *zerolog.Event
	if outcome.Kind.Valid() {
		event = log.Info()
	} else {
		event = log.Warn()
	}
	event.
		Str("license_key", logging.MaskKey(req.Key)).
		Str("outcome", string(outcome.Kind)).
		Str("source", req.SourceAddress).
		Msg("license verification")
}
