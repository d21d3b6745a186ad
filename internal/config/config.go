// Package config provides configuration management for the
// compliance-alerting service.
package config

import (
	"os"
	"strconv"
	"time"
)

const (
	// DefaultAdminMaxPayloadSize is the default max payload size for admin endpoints (100KB).
	DefaultAdminMaxPayloadSize int64 = 100 * 1024 // 102400 bytes

	// DefaultAlertCooldownDays is the default per-device alert throttle window.
	DefaultAlertCooldownDays = 7

	// DefaultEOSWarningDays is the default approaching-end-of-support window.
	DefaultEOSWarningDays = 90

	// DefaultSyncInterval is the default device inventory sync cadence.
	DefaultSyncInterval = time.Hour

	// DefaultEvaluationInterval is the default compliance evaluation cadence.
	DefaultEvaluationInterval = time.Hour

	// DefaultAlertInterval is the default alert processing cadence.
	DefaultAlertInterval = 24 * time.Hour
)

// Config holds the application configuration.
type Config struct {
	// Port is the HTTP server port.
	Port string

	// LogLevel is the zerolog level name (debug, info, warn, error).
	LogLevel string

	// LogPretty enables human-readable console log output.
	LogPretty bool

	// DatabaseURL is the PostgreSQL connection string for alert cooldown
	// persistence. Empty keeps cooldowns in memory.
	DatabaseURL string

	// GraphTenantID, GraphClientID and GraphClientSecret are the Microsoft
	// Entra app registration used for Graph API access.
	GraphTenantID     string
	GraphClientID     string
	GraphClientSecret string

	// GraphBaseURL overrides the Microsoft Graph endpoint, for tests.
	GraphBaseURL string

	// AlertSenderEmail is the mailbox alerts are sent from. Empty disables
	// email delivery.
	AlertSenderEmail string

	// AlertCooldownDays is the per-device, per-alert-type throttle window.
	AlertCooldownDays int

	// EOSWarningDays is the approaching-end-of-support window.
	EOSWarningDays int

	// SyncInterval is the device inventory sync cadence.
	SyncInterval time.Duration

	// EvaluationInterval is the compliance evaluation cadence.
	EvaluationInterval time.Duration

	// AlertInterval is the alert processing cadence.
	AlertInterval time.Duration

	// AdminMaxPayloadSize is the maximum payload size for admin endpoints in bytes.
	AdminMaxPayloadSize int64

	// VendorSupportSeedFile is the YAML file of vendor lifecycle records
	// loaded into an empty store at startup. Empty skips seeding.
	VendorSupportSeedFile string
}

// Load loads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:                  getEnvOrDefault("PORT", "8080"),
		LogLevel:              getEnvOrDefault("LOG_LEVEL", "info"),
		LogPretty:             getEnvBoolOrDefault("LOG_PRETTY", false),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		GraphTenantID:         os.Getenv("GRAPH_TENANT_ID"),
		GraphClientID:         os.Getenv("GRAPH_CLIENT_ID"),
		GraphClientSecret:     os.Getenv("GRAPH_CLIENT_SECRET"),
		GraphBaseURL:          os.Getenv("GRAPH_BASE_URL"),
		AlertSenderEmail:      os.Getenv("ALERT_SENDER_EMAIL"),
		AlertCooldownDays:     getEnvIntOrDefault("ALERT_COOLDOWN_DAYS", DefaultAlertCooldownDays),
		EOSWarningDays:        getEnvIntOrDefault("EOS_WARNING_DAYS", DefaultEOSWarningDays),
		SyncInterval:          getEnvDurationOrDefault("SYNC_INTERVAL", DefaultSyncInterval),
		EvaluationInterval:    getEnvDurationOrDefault("EVALUATION_INTERVAL", DefaultEvaluationInterval),
		AlertInterval:         getEnvDurationOrDefault("ALERT_INTERVAL", DefaultAlertInterval),
		AdminMaxPayloadSize:   getEnvInt64OrDefault("ADMIN_MAX_PAYLOAD_SIZE", DefaultAdminMaxPayloadSize),
		VendorSupportSeedFile: os.Getenv("VENDOR_SUPPORT_SEED_FILE"),
	}
}

// getEnvOrDefault returns the environment variable value or the default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt64OrDefault returns the environment variable value as int64 or the default if not set or invalid.
func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvIntOrDefault returns the environment variable value as int or the default if not set or invalid.
func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvBoolOrDefault returns the environment variable value as bool or the default if not set or invalid.
func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault returns the environment variable value as a duration or the default if not set or invalid.
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
