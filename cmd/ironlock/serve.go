package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rex103240/IronLock-Server/internal/config"
	"github.com/rex103240/IronLock-Server/internal/keylock"
	"github.com/rex103240/IronLock-Server/internal/license"
	"github.com/rex103240/IronLock-Server/internal/metrics"
	"github.com/rex103240/IronLock-Server/internal/middleware"
	"github.com/rex103240/IronLock-Server/internal/routes"
	"github.com/rex103240/IronLock-Server/internal/service"
	"github.com/rex103240/IronLock-Server/internal/store"
	"github.com/rex103240/IronLock-Server/internal/websocket"
)

const (
	shutdownTimeout   = 10 * time.Second
	verifyRateEvery   = 200 * time.Millisecond
	verifyRateBurst   = 20
	limiterSweepEvery = 5 * time.Minute
)

func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the license server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	gin.SetMode(cfg.GinMode)

	db, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return err
	}
	s := store.New(db)

	if err := seedAdmin(ctx, s, cfg.Admin); err != nil {
		return err
	}
	if cfg.InsecureJWTSecret() {
		log.Warn().Msg("JWT_SECRET is not set, using the development secret")
	}

	signer, err := license.LoadSigner(license.KeySource{
		File:     cfg.Signing.KeyFile,
		PEM:      cfg.Signing.Key,
		Required: cfg.Signing.Required,
	})
	if err != nil {
		return err
	}

	var publicKeyPEM []byte
	if rsaSigner, ok := signer.(*license.RSASigner); ok {
		if publicKeyPEM, err = rsaSigner.PublicKeyPEM(); err != nil {
			return err
		}
	}
	if signer.Degraded() {
		log.Warn().Msg("no signing key configured, attestations will be issued unsigned")
	}

	locker, err := newLocker(cfg.Lock)
	if err != nil {
		return err
	}

	m := metrics.New()
	m.SetSignerDegraded(signer.Degraded())

	opts := []service.Option{service.WithRecorder(m), service.WithLocker(locker)}

	var wsHandler *websocket.WebSocketHandler
	authMiddleware := middleware.NewAuthMiddleware(s, cfg.Admin.JWTSecret, cfg.Admin.TokenTTL)
	if cfg.EnableWebsocket {
		hub := websocket.NewHub()
		go hub.Run(ctx)
		wsHandler = websocket.NewWebSocketHandler(ctx, hub, authMiddleware)
		opts = append(opts, service.WithNotifier(hub))
	}

	engine := license.NewEngine(s, signer, license.WithLocker(locker))
	verification := service.NewVerificationService(engine, s, opts...)
	admin := service.NewAdminService(s, verification, opts...)

	verifyLimiter := middleware.NewRateLimiter(verifyRateEvery, verifyRateBurst)
	go sweepLimiter(ctx, verifyLimiter)

	router := routes.SetupRouter(routes.Dependencies{
		Config:        cfg,
		Store:         s,
		Verification:  verification,
		Admin:         admin,
		Metrics:       m,
		Auth:          authMiddleware,
		VerifyLimiter: verifyLimiter,
		WebSocket:     wsHandler,
		PublicKeyPEM:  publicKeyPEM,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Bool("signer_degraded", signer.Degraded()).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newLocker(cfg config.Lock) (license.Locker, error) {
	if cfg.RedisURL == "" {
		return keylock.NewMemoryLocker(), nil
	}

	client, err := keylock.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	log.Info().Msg("using redis verification lock")
	return keylock.NewRedisLocker(client, keylock.RedisConfig{TTL: cfg.TTL, Wait: cfg.Wait}), nil
}

// seedAdmin makes sure an admin account exists. Without ADMIN_PASSWORD a
// random one is generated and logged once.
func seedAdmin(ctx context.Context, s *store.Store, cfg config.Admin) error {
	password := cfg.Password
	generated := false
	if password == "" {
		if _, err := s.FindAdminByUsername(ctx, cfg.Username); err == nil {
			return nil
		}
		var err error
		if password, err = gonanoid.New(20); err != nil {
			return err
		}
		generated = true
	}

	created, err := s.EnsureAdmin(ctx, cfg.Username, password)
	if err != nil {
		return err
	}
	if created {
		event := log.Info().Str("username", cfg.Username)
		if generated {
			event = log.Warn().Str("username", cfg.Username).Str("password", password)
		}
		event.Msg("admin account created")
	}
	return nil
}

func sweepLimiter(ctx context.Context, rl *middleware.RateLimiter) {
	ticker := time.NewTicker(limiterSweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Sweep()
		}
	}
}
