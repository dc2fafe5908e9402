package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const insecureJWTSecret = "ironlock-dev-jwt-secret-change-me"

type Config struct {
	Port    string `envconfig:"PORT" default:"8080"`
	GinMode string `envconfig:"GIN_MODE" default:"release"`

	DatabaseURL string `envconfig:"DATABASE_URL" default:"ironlock.db"`

	Signing Signing
	Lock    Lock
	Admin   Admin
	Log     Log

	APIKeyRequired  bool     `envconfig:"API_KEY_REQUIRED" default:"false"`
	APIKeys         []string `envconfig:"API_KEYS"`
	EnableWebsocket bool     `envconfig:"ENABLE_WEBSOCKET" default:"true"`
}

type Signing struct {
	KeyFile string `envconfig:"SIGNING_KEY_FILE" default:"private_key.pem"`
	Key     string `envconfig:"SIGNING_KEY"`
	// Required refuses to start without key material instead of running degraded.
	Required bool `envconfig:"SIGNING_REQUIRED" default:"false"`
}

type Lock struct {
	RedisURL string        `envconfig:"REDIS_URL"`
	TTL      time.Duration `envconfig:"LOCK_TTL" default:"10s"`
	Wait     time.Duration `envconfig:"LOCK_WAIT" default:"5s"`
}

type Admin struct {
	Username  string        `envconfig:"ADMIN_USERNAME" default:"admin"`
	Password  string        `envconfig:"ADMIN_PASSWORD"`
	JWTSecret string        `envconfig:"JWT_SECRET" default:"ironlock-dev-jwt-secret-change-me"`
	TokenTTL  time.Duration `envconfig:"JWT_TTL" default:"24h"`
}

type Log struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"console"`
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	keys := c.APIKeys[:0]
	for _, k := range c.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	c.APIKeys = keys

	if c.APIKeyRequired && len(c.APIKeys) == 0 {
		return errors.New("config: API_KEY_REQUIRED is set but API_KEYS is empty")
	}
	if c.Lock.TTL <= 0 || c.Lock.Wait <= 0 {
		return errors.New("config: LOCK_TTL and LOCK_WAIT must be positive")
	}
	return nil
}

// InsecureJWTSecret reports whether the built-in development secret is in use.
func (c *Config) InsecureJWTSecret() bool {
	return c.Admin.JWTSecret == insecureJWTSecret
}
