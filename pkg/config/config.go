// Package config loads application configuration from environment
// variables prefixed with PORTAL_.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/devsoft-reco/portal-hija/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Mother application endpoints
	Mother MotherConfig

	// Credential persistence
	Credentials CredentialsConfig

	// Local provisioning database (optional)
	Database DatabaseConfig

	// Local API client behavior
	LocalAPI LocalAPIConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// MotherConfig locates the mother application this app federates with.
type MotherConfig struct {
	// APIURL is the base of the mother's HTTP API (token validation,
	// canonical profiles).
	APIURL string

	// AppURL is the browser-facing mother portal (login, logout,
	// application catalog).
	AppURL string
}

// CredentialsConfig selects and configures the credential store.
type CredentialsConfig struct {
	// Backend is "file" or "redis".
	Backend string

	// StateDir holds the credential file for the file backend.
	StateDir string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// DatabaseConfig holds the optional local provisioning database.
type DatabaseConfig struct {
	// PostgresURL enables just-in-time user provisioning when set.
	PostgresURL string
}

// LocalAPIConfig tunes the authenticated local API client.
type LocalAPIConfig struct {
	// BaseURL points profile resolution at an external child backend.
	// When empty, resolution validates against the mother directly and
	// provisions in-process.
	BaseURL   string
	CacheSize int
	CacheTTL  time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("PORTAL_HOST", "0.0.0.0"),
			Port:            getEnv("PORTAL_PORT", "8080"),
			ReadTimeout:     getEnvDuration("PORTAL_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("PORTAL_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("PORTAL_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("PORTAL_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Mother: MotherConfig{
			APIURL: getEnv("PORTAL_MOTHER_API_URL", "http://localhost:8000"),
			AppURL: getEnv("PORTAL_MOTHER_APP_URL", "http://localhost:5173"),
		},
		Credentials: CredentialsConfig{
			Backend:       getEnv("PORTAL_CREDENTIALS_BACKEND", "file"),
			StateDir:      getEnv("PORTAL_STATE_DIR", "/var/lib/portal-hija"),
			RedisAddr:     getEnv("PORTAL_REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("PORTAL_REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("PORTAL_REDIS_DB", 0),
		},
		Database: DatabaseConfig{
			PostgresURL: getEnv("PORTAL_POSTGRES_URL", ""),
		},
		LocalAPI: LocalAPIConfig{
			BaseURL:   getEnv("PORTAL_LOCAL_API_URL", ""),
			CacheSize: getEnvInt("PORTAL_CACHE_SIZE", 128),
			CacheTTL:  getEnvDuration("PORTAL_CACHE_TTL", 5*time.Minute),
		},
		Observability: ObservabilityConfig{
			LogLevel:           parseLogLevel(getEnv("PORTAL_LOG_LEVEL", "info")),
			MetricsEnabled:     getEnvBool("PORTAL_METRICS_ENABLED", true),
			OTelEnabled:        getEnvBool("PORTAL_OTEL_ENABLED", false),
			OTelEndpoint:       getEnv("PORTAL_OTEL_ENDPOINT", "localhost:4317"),
			OTelServiceName:    getEnv("PORTAL_OTEL_SERVICE_NAME", "portal-hija"),
			OTelServiceVersion: getEnv("PORTAL_OTEL_SERVICE_VERSION", "1.0.0"),
			OTelInsecure:       getEnvBool("PORTAL_OTEL_INSECURE", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Mother.APIURL == "" {
		return fmt.Errorf("mother API URL is required")
	}
	if c.Mother.AppURL == "" {
		return fmt.Errorf("mother app URL is required")
	}

	switch c.Credentials.Backend {
	case "file":
		if c.Credentials.StateDir == "" {
			return fmt.Errorf("state dir is required for the file credential backend")
		}
	case "redis":
		if c.Credentials.RedisAddr == "" {
			return fmt.Errorf("redis address is required for the redis credential backend")
		}
	default:
		return fmt.Errorf("invalid credential backend: %s (must be file or redis)", c.Credentials.Backend)
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
