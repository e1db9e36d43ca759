// Package config manages application configuration
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Session registry backends
const (
	SessionBackendMemory = "memory"
	SessionBackendRedis  = "redis"
)

const defaultSecretKey = "dev-secret-key-change-in-production"

// Config holds all application configuration
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"

	// Database
	DatabaseURL  string
	StoreTimeout time.Duration

	// Security
	SecretKey string // For JWT signing

	// Session settings
	SessionDuration      time.Duration
	TokenDuration        time.Duration
	SessionBackend       string
	SessionSweepInterval time.Duration

	// Redis, used when SessionBackend is "redis"
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Bootstrap admin account, skipped when email or password is empty
	AdminName     string
	AdminEmail    string
	AdminPassword string

	// Reporting
	LowBalanceThreshold decimal.Decimal

	// Logging
	LogLevel      string
	LogFilename   string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int
	LogCompress   bool
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory, when present, is loaded first and
// never overrides variables already set in the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	return &Config{
		Port:                 getEnv("NORTHBANK_PORT", "3001"),
		Environment:          getEnv("NORTHBANK_ENV", "development"),
		DatabaseURL:          getEnv("NORTHBANK_DATABASE_URL", "northbank.db"),
		StoreTimeout:         getDurationEnv("NORTHBANK_STORE_TIMEOUT", 5*time.Second),
		SecretKey:            getEnv("NORTHBANK_SECRET_KEY", defaultSecretKey),
		SessionDuration:      getDurationEnv("NORTHBANK_SESSION_DURATION", 24*time.Hour),
		TokenDuration:        getDurationEnv("NORTHBANK_TOKEN_DURATION", 24*time.Hour),
		SessionBackend:       getEnv("NORTHBANK_SESSION_BACKEND", SessionBackendMemory),
		SessionSweepInterval: getDurationEnv("NORTHBANK_SESSION_SWEEP_INTERVAL", 10*time.Minute),
		RedisAddr:            getEnv("NORTHBANK_REDIS_ADDR", "localhost:6379"),
		RedisPassword:        getEnv("NORTHBANK_REDIS_PASSWORD", ""),
		RedisDB:              getIntEnv("NORTHBANK_REDIS_DB", 0),
		AdminName:            getEnv("NORTHBANK_ADMIN_NAME", "Administrator"),
		AdminEmail:           getEnv("NORTHBANK_ADMIN_EMAIL", ""),
		AdminPassword:        getEnv("NORTHBANK_ADMIN_PASSWORD", ""),
		LowBalanceThreshold:  getDecimalEnv("NORTHBANK_LOW_BALANCE_THRESHOLD", decimal.NewFromInt(100)),
		LogLevel:             getEnv("NORTHBANK_LOG_LEVEL", "info"),
		LogFilename:          getEnv("NORTHBANK_LOG_FILENAME", "logs/northbank.log"),
		LogMaxSize:           getIntEnv("NORTHBANK_LOG_MAX_SIZE", 100),
		LogMaxBackups:        getIntEnv("NORTHBANK_LOG_MAX_BACKUPS", 3),
		LogMaxAge:            getIntEnv("NORTHBANK_LOG_MAX_AGE", 28),
		LogCompress:          getBoolEnv("NORTHBANK_LOG_COMPRESS", true),
	}, nil
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	if c.SessionBackend != SessionBackendMemory && c.SessionBackend != SessionBackendRedis {
		return fmt.Errorf("unknown session backend %q", c.SessionBackend)
	}
	if c.IsProduction() && (c.SecretKey == defaultSecretKey || len(c.SecretKey) < 32) {
		return errors.New("NORTHBANK_SECRET_KEY must be set to at least 32 characters in production")
	}
	if c.StoreTimeout <= 0 || c.SessionDuration <= 0 || c.TokenDuration <= 0 {
		return errors.New("timeouts and durations must be positive")
	}
	if c.SessionBackend == SessionBackendMemory && c.SessionSweepInterval <= 0 {
		return errors.New("NORTHBANK_SESSION_SWEEP_INTERVAL must be positive")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDecimalEnv(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if parsed, err := decimal.NewFromString(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
