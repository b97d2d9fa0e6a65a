package config

import (
	"testing"
	"time"

	"github.com/platinummonkey/sitepanel/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "memory", cfg.Sessions.Backend)
	assert.Equal(t, 12*time.Hour, cfg.Sessions.TTL)
	assert.Equal(t, "sitepanel_session", cfg.Sessions.CookieName)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.False(t, cfg.Observability.OTelEnabled)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("SITEPANEL_PORT", "8000")
	t.Setenv("SITEPANEL_DB_DRIVER", "postgres")
	t.Setenv("SITEPANEL_DB_DSN", "postgres://localhost/sitepanel")
	t.Setenv("SITEPANEL_SESSION_BACKEND", "redis")
	t.Setenv("SITEPANEL_SESSION_TTL", "30m")
	t.Setenv("SITEPANEL_SESSION_SECURE_COOKIE", "false")
	t.Setenv("SITEPANEL_LOG_LEVEL", "debug")
	t.Setenv("SITEPANEL_OTEL_ENABLED", "1")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "redis", cfg.Sessions.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Sessions.TTL)
	assert.False(t, cfg.Sessions.SecureCookie)
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)

	otel := cfg.OTel()
	assert.True(t, otel.Enabled)
	assert.Equal(t, "sitepanel", otel.ServiceName)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"same ports", map[string]string{"SITEPANEL_PORT": "9090"}},
		{"bad driver", map[string]string{"SITEPANEL_DB_DRIVER": "mysql"}},
		{"bad backend", map[string]string{"SITEPANEL_SESSION_BACKEND": "memcached"}},
		{"bad bcrypt cost", map[string]string{"SITEPANEL_BCRYPT_COST": "2"}},
		{"zero managers", map[string]string{"SITEPANEL_SESSION_MAX_MANAGERS": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("SITEPANEL_TEST_INT", "nope")
	assert.Equal(t, 7, getEnvInt("SITEPANEL_TEST_INT", 7))

	t.Setenv("SITEPANEL_TEST_DURATION", "90s")
	assert.Equal(t, 90*time.Second, getEnvDuration("SITEPANEL_TEST_DURATION", time.Second))

	t.Setenv("SITEPANEL_TEST_BOOL", "TRUE")
	assert.True(t, getEnvBool("SITEPANEL_TEST_BOOL", false))

	assert.Equal(t, "fallback", getEnv("SITEPANEL_TEST_UNSET", "fallback"))
}
