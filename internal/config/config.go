// Package config loads rankwatch settings from defaults, an optional config
// file, RANKWATCH_ environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/rankwatch/internal/fingerprint"
	"github.com/spf13/viper"
)

// Configuration keys. Flags use the same names with dashes.
const (
	KeyOutput                  = "output"
	KeyBackend                 = "backend"
	KeyDSN                     = "dsn"
	KeyBaseURL                 = "base_url"
	KeyLandingURL              = "landing_url"
	KeyUserAgent               = "user_agent"
	KeyTimeout                 = "timeout"
	KeyMaxRedirects            = "max_redirects"
	KeyFingerprint             = "fingerprint"
	KeyRespectRobots           = "respect_robots"
	KeyLegacySinglePageDiscard = "legacy_single_page_discard"
	KeyMetricsPort             = "metrics_port"
	KeyLogLevel                = "log_level"
	KeyLogFormat               = "log_format"
	KeySummaryFormat           = "summary_format"
)

// Storage backends.
const (
	BackendCSV      = "csv"
	BackendJSON     = "json"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// EnvPrefix prefixes every environment variable, e.g. RANKWATCH_OUTPUT.
const EnvPrefix = "RANKWATCH"

// DefaultOutput is the dataset path used when none is configured.
const DefaultOutput = "data/resulting_data.csv"

// Config is the resolved run configuration.
type Config struct {
	Output  string
	Backend string
	DSN     string

	BaseURL       string
	LandingURL    string
	UserAgent     string
	Timeout       time.Duration
	MaxRedirects  int
	Fingerprint   fingerprint.Profile
	RespectRobots bool

	LegacySinglePageDiscard bool

	MetricsPort   int
	LogLevel      slog.Level
	LogFormat     string
	SummaryFormat string
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults sets default configuration values. Empty URLs and user agent
// select the fetcher's built-in defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyOutput, DefaultOutput)
	v.SetDefault(KeyBackend, BackendCSV)
	v.SetDefault(KeyDSN, "")
	v.SetDefault(KeyBaseURL, "")
	v.SetDefault(KeyLandingURL, "")
	v.SetDefault(KeyUserAgent, "")
	v.SetDefault(KeyTimeout, "30s")
	v.SetDefault(KeyMaxRedirects, 10)
	v.SetDefault(KeyFingerprint, string(fingerprint.ProfileGo))
	v.SetDefault(KeyRespectRobots, false)
	v.SetDefault(KeyLegacySinglePageDiscard, false)
	v.SetDefault(KeyMetricsPort, 0)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeySummaryFormat, "text")
}

// ReadFile merges a config file into v. An explicit path must exist; without
// one, rankwatch.yaml (or .toml, .json) in the working directory is read when
// present.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("rankwatch")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load resolves and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Output:                  strings.TrimSpace(v.GetString(KeyOutput)),
		Backend:                 strings.ToLower(strings.TrimSpace(v.GetString(KeyBackend))),
		DSN:                     v.GetString(KeyDSN),
		BaseURL:                 v.GetString(KeyBaseURL),
		LandingURL:              v.GetString(KeyLandingURL),
		UserAgent:               v.GetString(KeyUserAgent),
		Timeout:                 v.GetDuration(KeyTimeout),
		MaxRedirects:            v.GetInt(KeyMaxRedirects),
		RespectRobots:           v.GetBool(KeyRespectRobots),
		LegacySinglePageDiscard: v.GetBool(KeyLegacySinglePageDiscard),
		MetricsPort:             v.GetInt(KeyMetricsPort),
		LogFormat:               strings.ToLower(v.GetString(KeyLogFormat)),
		SummaryFormat:           strings.ToLower(v.GetString(KeySummaryFormat)),
	}

	profile, err := fingerprint.ParseProfile(v.GetString(KeyFingerprint))
	if err != nil {
		return Config{}, err
	}
	cfg.Fingerprint = profile

	if err := cfg.LogLevel.UnmarshalText([]byte(v.GetString(KeyLogLevel))); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", KeyLogLevel, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendCSV, BackendJSON:
		if c.Output == "" {
			return fmt.Errorf("%s must not be empty for the %s backend", KeyOutput, c.Backend)
		}
	case BackendSQLite:
		if c.DSN == "" && c.Output == "" {
			return fmt.Errorf("%s or %s is required for the sqlite backend", KeyDSN, KeyOutput)
		}
	case BackendPostgres:
		if c.DSN == "" {
			return fmt.Errorf("%s is required for the postgres backend", KeyDSN)
		}
	default:
		return fmt.Errorf("unknown %s %q (want csv, json, sqlite or postgres)", KeyBackend, c.Backend)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("%s must not be negative", KeyTimeout)
	}
	if c.MetricsPort < 0 || c.MetricsPort > 65535 {
		return fmt.Errorf("%s %d out of range", KeyMetricsPort, c.MetricsPort)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown %s %q (want text or json)", KeyLogFormat, c.LogFormat)
	}

	switch c.SummaryFormat {
	case "text", "json", "html":
	default:
		return fmt.Errorf("unknown %s %q (want text, json or html)", KeySummaryFormat, c.SummaryFormat)
	}
	return nil
}

// StorageTarget names where the selected backend writes, for messages. The
// postgres DSN may carry credentials and is never returned.
func (c Config) StorageTarget() string {
	switch {
	case c.Backend == BackendPostgres:
		return "the postgres rankings table"
	case c.Backend == BackendSQLite && c.DSN != "":
		return c.DSN
	default:
		return c.Output
	}
}
