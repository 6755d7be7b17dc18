package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	keyHTTPPort, keyDBType, keySQLiteDSN, keyPostgresDSN, keySessionTTL, keyLogLevel,
	keyBusinessOpensAt, keyBusinessClosesAt, keyBusinessTimezone, keyLinkGrace, keySessionPruneInterval,
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		name := envName(key)
		t.Setenv(name, "")
		if err := os.Unsetenv(name); err != nil {
			t.Fatalf("failed to unset %s: %v", name, err)
		}
	}
}

func TestLoader_ParseEnvironment(t *testing.T) {
	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.HTTPPort)
		assert.Equal(t, DBTypeSQLite, cfg.DBType)
		assert.Equal(t, "calendar.db", cfg.SQLiteDSN)
		assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
		assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
		assert.Equal(t, 5*time.Minute, cfg.LinkGrace)
		assert.Equal(t, time.Hour, cfg.SessionPruneInterval)
		assert.False(t, cfg.BusinessHours.IsZero())
		assert.Equal(t, "UTC", cfg.BusinessHours.Location().String())
	})

	t.Run("parses overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CALENDAR_HTTP_PORT", "9090")
		t.Setenv("CALENDAR_DB_TYPE", "Postgres")
		t.Setenv("CALENDAR_POSTGRES_DSN", "postgres://calendar@localhost/calendar")
		t.Setenv("CALENDAR_SESSION_TTL", "2h")
		t.Setenv("CALENDAR_LOG_LEVEL", "debug")
		t.Setenv("CALENDAR_BUSINESS_OPENS_AT", "09:30")
		t.Setenv("CALENDAR_BUSINESS_CLOSES_AT", "17:00")
		t.Setenv("CALENDAR_BUSINESS_TIMEZONE", "Europe/Berlin")
		t.Setenv("CALENDAR_LINK_GRACE", "0s")
		t.Setenv("CALENDAR_SESSION_PRUNE_INTERVAL", "15m")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 9090, cfg.HTTPPort)
		assert.Equal(t, DBTypePostgres, cfg.DBType)
		assert.Equal(t, "postgres://calendar@localhost/calendar", cfg.PostgresDSN)
		assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
		assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
		assert.Equal(t, time.Duration(0), cfg.LinkGrace)
		assert.Equal(t, 15*time.Minute, cfg.SessionPruneInterval)
		assert.Equal(t, "Europe/Berlin", cfg.BusinessHours.Location().String())

		berlin := cfg.BusinessHours.Location()
		assert.True(t, cfg.BusinessHours.ContainsInstant(time.Date(2030, 3, 4, 9, 30, 0, 0, berlin)))
		assert.False(t, cfg.BusinessHours.ContainsInstant(time.Date(2030, 3, 4, 9, 29, 0, 0, berlin)))
	})

	t.Run("disables business hours", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CALENDAR_BUSINESS_OPENS_AT", "off")

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.BusinessHours.IsZero())
	})

	t.Run("errors when the postgres dsn is missing", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CALENDAR_DB_TYPE", "postgres")

		_, err := Load()
		if err == nil {
			t.Fatalf("expected error when required values are missing")
		}
		expected := "required configuration is missing: CALENDAR_POSTGRES_DSN"
		if err.Error() != expected {
			t.Fatalf("unexpected error message: %q", err.Error())
		}
	})

	t.Run("reports every invalid value", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CALENDAR_HTTP_PORT", "-1")
		t.Setenv("CALENDAR_DB_TYPE", "mysql")
		t.Setenv("CALENDAR_SESSION_TTL", "forever")
		t.Setenv("CALENDAR_LOG_LEVEL", "chatty")
		t.Setenv("CALENDAR_BUSINESS_CLOSES_AT", "07:00")

		_, err := Load()
		require.Error(t, err)
		for _, key := range []string{
			"CALENDAR_HTTP_PORT", "CALENDAR_DB_TYPE", "CALENDAR_SESSION_TTL",
			"CALENDAR_LOG_LEVEL", "CALENDAR_BUSINESS_CLOSES_AT",
		} {
			assert.Contains(t, err.Error(), key)
		}
		assert.True(t, strings.HasPrefix(err.Error(), "configuration values are invalid: "))
	})

	t.Run("reads a config file below the environment", func(t *testing.T) {
		clearEnv(t)
		path := filepath.Join(t.TempDir(), "calendar.yaml")
		require.NoError(t, os.WriteFile(path, []byte("http_port: 7070\nsqlite_dsn: /var/lib/calendar.db\nlink_grace: 10m\n"), 0o600))
		t.Setenv("CALENDAR_HTTP_PORT", "7171")

		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 7171, cfg.HTTPPort)
		assert.Equal(t, "/var/lib/calendar.db", cfg.SQLiteDSN)
		assert.Equal(t, 10*time.Minute, cfg.LinkGrace)

		_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})
}
