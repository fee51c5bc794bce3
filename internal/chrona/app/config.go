package app

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chrona-app/chrona/common/environment"
)

// Config holds application configuration.
type Config struct {
	// DatabasePath is the SQLite file location.
	DatabasePath string
	// HTTPAddr is the listen address for the API server.
	HTTPAddr string
	// JWTSecret signs bearer tokens. Required.
	JWTSecret string

	// LogLevel is one of debug, info, warn, error.
	LogLevel string
	// LogFormat is "json" or "text".
	LogFormat string

	// LLMEndpoint is the OpenAI-compatible base URL. Empty plus an empty
	// APIKey leaves the language-model layer off; parsing and
	// classification then run rule-based only.
	LLMEndpoint string
	LLMModel    string
	LLMAPIKey   string
	LLMTimeout  time.Duration

	// ReminderInterval is the cadence of the due-reminder sweep.
	ReminderInterval time.Duration
	// EmailEnabled switches the notifier from logging to email delivery.
	EmailEnabled bool
	EmailFrom    string

	// SyncInterval is the cadence of the external calendar sync pass.
	// Providers below feed the bootstrap user's calendar.
	SyncInterval time.Duration

	GoogleEnabled    bool
	GoogleClientID   string
	GoogleSecret     string
	GoogleTokenFile  string
	GoogleCalendarID string

	CaldavEnabled  bool
	CaldavEndpoint string
	CaldavUsername string
	CaldavPassword string
	CaldavCalendar string

	// Bootstrap user created at startup when absent. Sync passes and
	// issued tokens are scoped to this account.
	BootstrapUsername string
	BootstrapEmail    string
	BootstrapPassword string
}

// fileConfig is the YAML shape of the optional config file. Every field is
// a default that environment variables override.
type fileConfig struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`
	HTTP struct {
		Addr      string `yaml:"addr"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	LLM struct {
		Endpoint string `yaml:"endpoint"`
		Model    string `yaml:"model"`
		APIKey   string `yaml:"api_key"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"llm"`
	Reminders struct {
		Interval string `yaml:"interval"`
	} `yaml:"reminders"`
	Email struct {
		Enabled bool   `yaml:"enabled"`
		From    string `yaml:"from"`
	} `yaml:"email"`
	Sync struct {
		Interval string `yaml:"interval"`
		Google   struct {
			Enabled      bool   `yaml:"enabled"`
			ClientID     string `yaml:"client_id"`
			ClientSecret string `yaml:"client_secret"`
			TokenFile    string `yaml:"token_file"`
			CalendarID   string `yaml:"calendar_id"`
		} `yaml:"google"`
		Caldav struct {
			Enabled  bool   `yaml:"enabled"`
			Endpoint string `yaml:"endpoint"`
			Username string `yaml:"username"`
			Password string `yaml:"password"`
			Calendar string `yaml:"calendar"`
		} `yaml:"caldav"`
	} `yaml:"sync"`
	Bootstrap struct {
		Username string `yaml:"username"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"bootstrap"`
}

// LoadConfig builds the configuration from the optional YAML file named by
// CHRONA_CONFIG_FILE, then environment variables on top. Environment
// always wins.
func LoadConfig() (*Config, error) {
	var file fileConfig
	if path := os.Getenv("CHRONA_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("app: read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("app: parse config file %s: %w", path, err)
		}
	}

	cfg := &Config{
		DatabasePath: environment.StringOr("CHRONA_DATABASE_PATH",
			orDefault(file.Database.Path, "./chrona.db")),
		HTTPAddr: environment.StringOr("CHRONA_HTTP_ADDR",
			orDefault(file.HTTP.Addr, ":8080")),
		JWTSecret: environment.StringOr("CHRONA_JWT_SECRET", file.HTTP.JWTSecret),

		LogLevel:  environment.StringOr("CHRONA_LOG_LEVEL", orDefault(file.Log.Level, "info")),
		LogFormat: environment.StringOr("CHRONA_LOG_FORMAT", orDefault(file.Log.Format, "text")),

		LLMEndpoint: environment.StringOr("CHRONA_LLM_ENDPOINT", file.LLM.Endpoint),
		LLMModel:    environment.StringOr("CHRONA_LLM_MODEL", file.LLM.Model),
		LLMAPIKey:   environment.StringOr("CHRONA_LLM_API_KEY", file.LLM.APIKey),
		LLMTimeout: environment.DurationOr("CHRONA_LLM_TIMEOUT",
			durationOrDefault(file.LLM.Timeout, 30*time.Second)),

		ReminderInterval: environment.DurationOr("CHRONA_REMINDER_INTERVAL",
			durationOrDefault(file.Reminders.Interval, time.Minute)),
		EmailEnabled: environment.BoolOr("CHRONA_EMAIL_ENABLED", file.Email.Enabled),
		EmailFrom:    environment.StringOr("CHRONA_EMAIL_FROM", file.Email.From),

		SyncInterval: environment.DurationOr("CHRONA_SYNC_INTERVAL",
			durationOrDefault(file.Sync.Interval, 15*time.Minute)),

		GoogleEnabled:    environment.BoolOr("CHRONA_GOOGLE_SYNC", file.Sync.Google.Enabled),
		GoogleClientID:   environment.StringOr("CHRONA_GOOGLE_CLIENT_ID", file.Sync.Google.ClientID),
		GoogleSecret:     environment.StringOr("CHRONA_GOOGLE_CLIENT_SECRET", file.Sync.Google.ClientSecret),
		GoogleTokenFile:  environment.StringOr("CHRONA_GOOGLE_TOKEN_FILE", file.Sync.Google.TokenFile),
		GoogleCalendarID: environment.StringOr("CHRONA_GOOGLE_CALENDAR_ID", file.Sync.Google.CalendarID),

		CaldavEnabled:  environment.BoolOr("CHRONA_CALDAV_SYNC", file.Sync.Caldav.Enabled),
		CaldavEndpoint: environment.StringOr("CHRONA_CALDAV_ENDPOINT", file.Sync.Caldav.Endpoint),
		CaldavUsername: environment.StringOr("CHRONA_CALDAV_USERNAME", file.Sync.Caldav.Username),
		CaldavPassword: environment.StringOr("CHRONA_CALDAV_PASSWORD", file.Sync.Caldav.Password),
		CaldavCalendar: environment.StringOr("CHRONA_CALDAV_CALENDAR", file.Sync.Caldav.Calendar),

		BootstrapUsername: environment.StringOr("CHRONA_BOOTSTRAP_USER", file.Bootstrap.Username),
		BootstrapEmail:    environment.StringOr("CHRONA_BOOTSTRAP_EMAIL", file.Bootstrap.Email),
		BootstrapPassword: environment.StringOr("CHRONA_BOOTSTRAP_PASSWORD", file.Bootstrap.Password),
	}

	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("app: CHRONA_JWT_SECRET is required")
	}
	if c.ReminderInterval <= 0 {
		return fmt.Errorf("app: reminder interval must be positive")
	}
	if c.SyncInterval <= 0 {
		return fmt.Errorf("app: sync interval must be positive")
	}
	if c.GoogleEnabled && c.GoogleTokenFile == "" {
		return fmt.Errorf("app: CHRONA_GOOGLE_TOKEN_FILE is required when Google sync is enabled")
	}
	if c.CaldavEnabled && c.CaldavEndpoint == "" {
		return fmt.Errorf("app: CHRONA_CALDAV_ENDPOINT is required when CalDAV sync is enabled")
	}
	return nil
}

// llmConfigured reports whether a language-model backend is reachable in
// principle. Ollama-style endpoints need no API key.
func (c *Config) llmConfigured() bool {
	return c.LLMAPIKey != "" || c.LLMEndpoint != ""
}

func orDefault(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

func durationOrDefault(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
