package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 24*time.Hour, cfg.SessionDuration)
	assert.Equal(t, SessionBackendMemory, cfg.SessionBackend)
	assert.True(t, cfg.LowBalanceThreshold.Equal(decimal.NewFromInt(100)))
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NORTHBANK_PORT", "9090")
	t.Setenv("NORTHBANK_ENV", "production")
	t.Setenv("NORTHBANK_SESSION_DURATION", "30m")
	t.Setenv("NORTHBANK_REDIS_DB", "4")
	t.Setenv("NORTHBANK_LOG_COMPRESS", "false")
	t.Setenv("NORTHBANK_LOW_BALANCE_THRESHOLD", "250.50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 30*time.Minute, cfg.SessionDuration)
	assert.Equal(t, 4, cfg.RedisDB)
	assert.False(t, cfg.LogCompress)
	assert.Equal(t, "250.5", cfg.LowBalanceThreshold.String())
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NORTHBANK_STORE_TIMEOUT", "soon")
	t.Setenv("NORTHBANK_LOG_MAX_SIZE", "big")
	t.Setenv("NORTHBANK_LOW_BALANCE_THRESHOLD", "lots")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.StoreTimeout)
	assert.Equal(t, 100, cfg.LogMaxSize)
	assert.True(t, cfg.LowBalanceThreshold.Equal(decimal.NewFromInt(100)))
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	err := os.WriteFile(filepath.Join(dir, ".env"), []byte("NORTHBANK_ADMIN_EMAIL=admin@bank.test\nNORTHBANK_SESSION_BACKEND=redis\n"), 0o600)
	require.NoError(t, err)
	t.Cleanup(func() {
		os.Unsetenv("NORTHBANK_ADMIN_EMAIL")
		os.Unsetenv("NORTHBANK_SESSION_BACKEND")
	})

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "admin@bank.test", cfg.AdminEmail)
	assert.Equal(t, SessionBackendRedis, cfg.SessionBackend)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	cfg.SessionBackend = "memcached"
	assert.Error(t, cfg.Validate())
	cfg.SessionBackend = SessionBackendRedis

	cfg.Environment = "production"
	assert.Error(t, cfg.Validate(), "default secret in production")
	cfg.SecretKey = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())

	cfg.SessionBackend = SessionBackendMemory
	cfg.SessionSweepInterval = 0
	assert.Error(t, cfg.Validate(), "zero sweep interval")
	cfg.SessionSweepInterval = -time.Second
	assert.Error(t, cfg.Validate(), "negative sweep interval")
	cfg.SessionSweepInterval = time.Minute
	assert.NoError(t, cfg.Validate())

	cfg.StoreTimeout = 0
	assert.Error(t, cfg.Validate())
}
