// Package config handles configuration loading and defaults.
package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Default values.
const (
	DefaultAPIBase               = "https://dummyjson.com/todos"
	DefaultRequestTimeoutSeconds = 10
	DefaultReminderLeadMinutes   = 60
	DefaultLogLevel              = "info"
	DefaultLogFormat             = "text"
)

// Config holds the full configuration for taskdeck.
//
// Values merge in precedence order: defaults, then the user config
// file, then TASKDECK_* environment variables, then flags.
type Config struct {
	// Remote API
	APIBase               string `toml:"api_base"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`

	// Reminders
	ReminderLeadMinutes int    `toml:"reminder_lead_minutes"`
	Notifications       bool   `toml:"notifications"`
	NotifyCommand       string `toml:"notify_command"`

	// Logging
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		APIBase:               DefaultAPIBase,
		RequestTimeoutSeconds: DefaultRequestTimeoutSeconds,
		ReminderLeadMinutes:   DefaultReminderLeadMinutes,
		Notifications:         true,
		LogLevel:              DefaultLogLevel,
		LogFormat:             DefaultLogFormat,
	}
}

// RequestTimeout returns the HTTP timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ReminderLead returns the reminder lead time as a duration.
func (c *Config) ReminderLead() time.Duration {
	return time.Duration(c.ReminderLeadMinutes) * time.Minute
}

// UserConfigPath returns the default config file location. The
// TASKDECK_CONFIG environment variable overrides it.
func UserConfigPath() string {
	if p := os.Getenv("TASKDECK_CONFIG"); p != "" {
		return p
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "taskdeck", "config.toml")
}

// Load builds the configuration, registering global flags on fs and
// parsing args. Flags that were not set on the command line do not
// override file or environment values.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := Default()

	configPath := fs.String("config", "", "Config file path (default: user config dir)")
	apiBase := fs.String("api-base", "", "Remote API base URL")
	lead := fs.Int("reminder-lead", 0, "Reminder lead time in minutes")
	noNotify := fs.Bool("no-notify", false, "Disable reminder notifications")
	notifyCmd := fs.String("notify-cmd", "", "Command used to deliver reminders")
	logLevel := fs.String("log-level", "", "Log level (debug|info|warn|error)")
	logFormat := fs.String("log-format", "", "Log format (text|json|logfmt)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	path := *configPath
	if path == "" {
		path = UserConfigPath()
	}
	if path != "" {
		if err := loadFile(cfg, path, *configPath != ""); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	// Flags win, but only when actually set.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "api-base":
			cfg.APIBase = *apiBase
		case "reminder-lead":
			cfg.ReminderLeadMinutes = *lead
		case "no-notify":
			cfg.Notifications = !*noNotify
		case "notify-cmd":
			cfg.NotifyCommand = *notifyCmd
		case "log-level":
			cfg.LogLevel = *logLevel
		case "log-format":
			cfg.LogFormat = *logFormat
		}
	})

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile merges a TOML config file into cfg. A missing file is only
// an error when the user named it explicitly.
func loadFile(cfg *Config, path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("TASKDECK_API_BASE"); v != "" {
		cfg.APIBase = v
	}
	if v := os.Getenv("TASKDECK_REMINDER_LEAD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ReminderLeadMinutes = n
		}
	}
	if v := os.Getenv("TASKDECK_NOTIFICATIONS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Notifications = b
		}
	}
	if v := os.Getenv("TASKDECK_NOTIFY_CMD"); v != "" {
		cfg.NotifyCommand = v
	}
	if v := os.Getenv("TASKDECK_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TASKDECK_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}

func (c *Config) validate() error {
	if c.APIBase == "" {
		return fmt.Errorf("api_base must not be empty")
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("request_timeout_seconds must be positive, got %d", c.RequestTimeoutSeconds)
	}
	if c.ReminderLeadMinutes < 0 {
		return fmt.Errorf("reminder_lead_minutes must not be negative, got %d", c.ReminderLeadMinutes)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q, must be one of: debug, info, warn, error", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json", "logfmt":
	default:
		return fmt.Errorf("invalid log_format %q, must be one of: text, json, logfmt", c.LogFormat)
	}
	return nil
}
