package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "ironlock.db", cfg.DatabaseURL)
	assert.Equal(t, "private_key.pem", cfg.Signing.KeyFile)
	assert.False(t, cfg.Signing.Required)
	assert.Equal(t, 10*time.Second, cfg.Lock.TTL)
	assert.Equal(t, 5*time.Second, cfg.Lock.Wait)
	assert.Equal(t, "admin", cfg.Admin.Username)
	assert.Equal(t, 24*time.Hour, cfg.Admin.TokenTTL)
	assert.True(t, cfg.EnableWebsocket)
	assert.True(t, cfg.InsecureJWTSecret())
}

func TestLoadFromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_URL", "postgres://ironlock@db/ironlock")
	t.Setenv("SIGNING_REQUIRED", "true")
	t.Setenv("API_KEY_REQUIRED", "true")
	t.Setenv("API_KEYS", "alpha, beta,,")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LOCK_WAIT", "750ms")
	t.Setenv("JWT_SECRET", "something-long-and-random")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgres://ironlock@db/ironlock", cfg.DatabaseURL)
	assert.True(t, cfg.Signing.Required)
	assert.Equal(t, []string{"alpha", "beta"}, cfg.APIKeys)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Lock.RedisURL)
	assert.Equal(t, 750*time.Millisecond, cfg.Lock.Wait)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.False(t, cfg.InsecureJWTSecret())
}

func TestLoadRejectsAPIKeyRequiredWithoutKeys(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("API_KEY_REQUIRED", "true")
	t.Setenv("API_KEYS", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("LOCK_TTL", "soon")

	_, err := Load()
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir from Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
