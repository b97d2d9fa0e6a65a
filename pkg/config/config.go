package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/sitepanel/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Sessions      SessionConfig
	Auth          AuthConfig
	Templates     TemplateConfig
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

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig selects the directory database
type DatabaseConfig struct {
	Driver          string // postgres or sqlite3
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

// SessionConfig controls the session store and the in-memory session managers
type SessionConfig struct {
	Backend       string // memory or redis
	RedisURL      string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	CookieName    string
	SecureCookie  bool

	// MaxManagers bounds how many browser sessions keep a live manager
	MaxManagers int
	// SweepSchedule is a cron spec for re-checking live sessions against the store
	SweepSchedule string
	// ResolveWait bounds how long a request waits on a pending resolution
	ResolveWait time.Duration
}

// AuthConfig holds credential settings
type AuthConfig struct {
	BcryptCost      int
	LoginRatePerMin int
	LoginBurst      int
}

// TemplateConfig points at optional role template overrides
type TemplateConfig struct {
	Path  string
	Watch bool
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from SITEPANEL_* environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Sessions:      loadSessionConfig(),
		Auth:          loadAuthConfig(),
		Templates:     loadTemplateConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("SITEPANEL_HOST", "0.0.0.0"),
		Port:            getEnv("SITEPANEL_PORT", "8080"),
		ReadTimeout:     getEnvDuration("SITEPANEL_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("SITEPANEL_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("SITEPANEL_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("SITEPANEL_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("SITEPANEL_HEALTH_PORT", "9090"),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          getEnv("SITEPANEL_DB_DRIVER", "sqlite3"),
		DSN:             getEnv("SITEPANEL_DB_DSN", "file:sitepanel.db?_foreign_keys=on"),
		MaxOpenConns:    getEnvInt("SITEPANEL_DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvInt("SITEPANEL_DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("SITEPANEL_DB_CONN_MAX_LIFETIME", 30*time.Minute),
		AutoMigrate:     getEnvBool("SITEPANEL_DB_AUTO_MIGRATE", true),
	}
}

func loadSessionConfig() SessionConfig {
	return SessionConfig{
		Backend:       getEnv("SITEPANEL_SESSION_BACKEND", "memory"),
		RedisURL:      getEnv("SITEPANEL_REDIS_URL", "redis://localhost:6379/0"),
		RedisPassword: getEnv("SITEPANEL_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("SITEPANEL_REDIS_DB", -1),
		TTL:           getEnvDuration("SITEPANEL_SESSION_TTL", 12*time.Hour),
		CookieName:    getEnv("SITEPANEL_SESSION_COOKIE", "sitepanel_session"),
		SecureCookie:  getEnvBool("SITEPANEL_SESSION_SECURE_COOKIE", true),
		MaxManagers:   getEnvInt("SITEPANEL_SESSION_MAX_MANAGERS", 4096),
		SweepSchedule: getEnv("SITEPANEL_SESSION_SWEEP", "@every 1m"),
		ResolveWait:   getEnvDuration("SITEPANEL_SESSION_RESOLVE_WAIT", 3*time.Second),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		BcryptCost:      getEnvInt("SITEPANEL_BCRYPT_COST", 12),
		LoginRatePerMin: getEnvInt("SITEPANEL_LOGIN_RATE_PER_MIN", 10),
		LoginBurst:      getEnvInt("SITEPANEL_LOGIN_BURST", 5),
	}
}

func loadTemplateConfig() TemplateConfig {
	return TemplateConfig{
		Path:  getEnv("SITEPANEL_ROLE_TEMPLATES", ""),
		Watch: getEnvBool("SITEPANEL_ROLE_TEMPLATES_WATCH", true),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("SITEPANEL_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("SITEPANEL_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("SITEPANEL_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("SITEPANEL_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("SITEPANEL_OTEL_SERVICE_NAME", "sitepanel"),
		OTelServiceVersion: getEnv("SITEPANEL_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("SITEPANEL_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("invalid database driver: %s (must be postgres or sqlite3)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database DSN is required")
	}

	switch c.Sessions.Backend {
	case "memory":
	case "redis":
		if c.Sessions.RedisURL == "" {
			return fmt.Errorf("redis URL is required for redis sessions")
		}
	default:
		return fmt.Errorf("invalid session backend: %s (must be memory or redis)", c.Sessions.Backend)
	}
	if c.Sessions.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Sessions.CookieName == "" {
		return fmt.Errorf("session cookie name is required")
	}
	if c.Sessions.MaxManagers <= 0 {
		return fmt.Errorf("session max managers must be positive")
	}

	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31")
	}
	if c.Auth.LoginRatePerMin <= 0 {
		return fmt.Errorf("login rate must be positive")
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

// OTel returns the OpenTelemetry settings in the form observability expects
func (c *Config) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.Observability.OTelEnabled,
		Endpoint:       c.Observability.OTelEndpoint,
		ServiceName:    c.Observability.OTelServiceName,
		ServiceVersion: c.Observability.OTelServiceVersion,
		Insecure:       c.Observability.OTelInsecure,
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
