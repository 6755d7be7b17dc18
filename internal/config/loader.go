package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/example/meeting-calendar/internal/scheduler"
)

// EnvPrefix is prepended to every environment variable the loader reads.
const EnvPrefix = "CALENDAR"

const (
	DBTypeSQLite   = "sqlite"
	DBTypePostgres = "postgres"
)

// businessHoursOff disables the opening hours check when used as BUSINESS_OPENS_AT.
const businessHoursOff = "off"

const (
	keyHTTPPort             = "http_port"
	keyDBType               = "db_type"
	keySQLiteDSN            = "sqlite_dsn"
	keyPostgresDSN          = "postgres_dsn"
	keySessionTTL           = "session_ttl"
	keyLogLevel             = "log_level"
	keyBusinessOpensAt      = "business_opens_at"
	keyBusinessClosesAt     = "business_closes_at"
	keyBusinessTimezone     = "business_timezone"
	keyLinkGrace            = "link_grace"
	keySessionPruneInterval = "session_prune_interval"
)

// Config captures environment driven configuration values for the calendar server.
type Config struct {
	HTTPPort             int
	DBType               string
	SQLiteDSN            string
	PostgresDSN          string
	SessionTTL           time.Duration
	LogLevel             slog.Level
	BusinessHours        scheduler.BusinessHours
	LinkGrace            time.Duration
	SessionPruneInterval time.Duration
}

// Load reads configuration from CALENDAR_* environment variables.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from an optional YAML, TOML or JSON file at path.
// Environment variables take precedence over the file, which takes precedence
// over the defaults. Every missing or invalid key is reported in one error.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	missing := make([]string, 0, 1)
	invalid := make([]string, 0, 2)

	cfg.HTTPPort = v.GetInt(keyHTTPPort)
	if cfg.HTTPPort <= 0 || cfg.HTTPPort > 65535 {
		invalid = append(invalid, envName(keyHTTPPort))
	}

	cfg.DBType = strings.ToLower(strings.TrimSpace(v.GetString(keyDBType)))
	cfg.SQLiteDSN = strings.TrimSpace(v.GetString(keySQLiteDSN))
	cfg.PostgresDSN = strings.TrimSpace(v.GetString(keyPostgresDSN))
	switch cfg.DBType {
	case DBTypeSQLite:
		if cfg.SQLiteDSN == "" {
			missing = append(missing, envName(keySQLiteDSN))
		}
	case DBTypePostgres:
		if cfg.PostgresDSN == "" {
			missing = append(missing, envName(keyPostgresDSN))
		}
	default:
		invalid = append(invalid, envName(keyDBType))
	}

	var ok bool
	if cfg.SessionTTL, ok = positiveDuration(v, keySessionTTL); !ok {
		invalid = append(invalid, envName(keySessionTTL))
	}
	if cfg.SessionPruneInterval, ok = positiveDuration(v, keySessionPruneInterval); !ok {
		invalid = append(invalid, envName(keySessionPruneInterval))
	}
	if grace, err := time.ParseDuration(strings.TrimSpace(v.GetString(keyLinkGrace))); err != nil || grace < 0 {
		invalid = append(invalid, envName(keyLinkGrace))
	} else {
		cfg.LinkGrace = grace
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(strings.TrimSpace(v.GetString(keyLogLevel)))); err != nil {
		invalid = append(invalid, envName(keyLogLevel))
	}

	hours, badKeys := businessHours(v)
	cfg.BusinessHours = hours
	invalid = append(invalid, badKeys...)

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required configuration is missing: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("configuration values are invalid: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(keyHTTPPort, 8080)
	v.SetDefault(keyDBType, DBTypeSQLite)
	v.SetDefault(keySQLiteDSN, "calendar.db")
	v.SetDefault(keyPostgresDSN, "")
	v.SetDefault(keySessionTTL, "24h")
	v.SetDefault(keyLogLevel, "info")
	v.SetDefault(keyBusinessOpensAt, "08:00")
	v.SetDefault(keyBusinessClosesAt, "20:00")
	v.SetDefault(keyBusinessTimezone, "UTC")
	v.SetDefault(keyLinkGrace, "5m")
	v.SetDefault(keySessionPruneInterval, "1h")
}

func positiveDuration(v *viper.Viper, key string) (time.Duration, bool) {
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}

func businessHours(v *viper.Viper) (scheduler.BusinessHours, []string) {
	opens := strings.TrimSpace(v.GetString(keyBusinessOpensAt))
	if strings.EqualFold(opens, businessHoursOff) {
		return scheduler.BusinessHours{}, nil
	}
	closes := strings.TrimSpace(v.GetString(keyBusinessClosesAt))

	loc, err := time.LoadLocation(strings.TrimSpace(v.GetString(keyBusinessTimezone)))
	if err != nil {
		return scheduler.BusinessHours{}, []string{envName(keyBusinessTimezone)}
	}
	hours, err := scheduler.NewBusinessHours(opens, closes, loc)
	if err == nil {
		return hours, nil
	}

	var bad []string
	if _, _, perr := scheduler.ParseClock(opens); perr != nil {
		bad = append(bad, envName(keyBusinessOpensAt))
	}
	if _, _, perr := scheduler.ParseClock(closes); perr != nil || errors.Is(err, scheduler.ErrInvalidRange) {
		bad = append(bad, envName(keyBusinessClosesAt))
	}
	return scheduler.BusinessHours{}, bad
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(key)
}
