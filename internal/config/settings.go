package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"
)

// Settings holds all configuration options.
type Settings struct {
	// Storage
	ContentRoot string `json:"content_root" yaml:"content_root" mapstructure:"content_root"`

	// Remote service
	APIBase       string `json:"api_base" yaml:"api_base" mapstructure:"api_base"`
	StorageScheme string `json:"storage_scheme" yaml:"storage_scheme" mapstructure:"storage_scheme"`
	StoragePrefix string `json:"storage_prefix" yaml:"storage_prefix" mapstructure:"storage_prefix"`
	UserAgent     string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`

	// Polling and timeouts
	PollIntervalMs         int `json:"poll_interval_ms" yaml:"poll_interval_ms" mapstructure:"poll_interval_ms"`
	StallTimeoutSeconds    int `json:"stall_timeout_seconds" yaml:"stall_timeout_seconds" mapstructure:"stall_timeout_seconds"`
	RequestTimeoutSeconds  int `json:"request_timeout_seconds" yaml:"request_timeout_seconds" mapstructure:"request_timeout_seconds"`
	DownloadTimeoutSeconds int `json:"download_timeout_seconds" yaml:"download_timeout_seconds" mapstructure:"download_timeout_seconds"`

	// Download settings
	MaxConcurrentInstalls int     `json:"max_concurrent_installs" yaml:"max_concurrent_installs" mapstructure:"max_concurrent_installs"`
	DownloadMaxRetries    int     `json:"download_max_retries" yaml:"download_max_retries" mapstructure:"download_max_retries"`
	DownloadRetryCooldown float64 `json:"download_retry_cooldown" yaml:"download_retry_cooldown" mapstructure:"download_retry_cooldown"`
	DownloadRetryExponent float64 `json:"download_retry_exponent" yaml:"download_retry_exponent" mapstructure:"download_retry_exponent"`

	// Registry behaviour
	UnsubscribePollIntervalMs int  `json:"unsubscribe_poll_interval_ms" yaml:"unsubscribe_poll_interval_ms" mapstructure:"unsubscribe_poll_interval_ms"`
	UnsubscribeMaxPolls       int  `json:"unsubscribe_max_polls" yaml:"unsubscribe_max_polls" mapstructure:"unsubscribe_max_polls"`
	ResetStateOnFailure       bool `json:"reset_state_on_failure" yaml:"reset_state_on_failure" mapstructure:"reset_state_on_failure"`

	// Logging
	LogFormat string `json:"log_format" yaml:"log_format" mapstructure:"log_format"` // text, json
	LogLevel  string `json:"log_level" yaml:"log_level" mapstructure:"log_level"`    // debug, info, warn, error
}

// EnvPrefix is the prefix for environment variable overrides,
// e.g. WORKSHOP_CONTENT_ROOT.
const EnvPrefix = "WORKSHOP"

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		ContentRoot: defaultContentRoot(),

		APIBase:       "https://node04.steamworkshopdownloader.io/prod/api",
		StorageScheme: "https",
		StoragePrefix: "/prod//storage/",
		UserAgent:     "WorkshopDownloader",

		PollIntervalMs:         1000,
		StallTimeoutSeconds:    30,
		RequestTimeoutSeconds:  15,
		DownloadTimeoutSeconds: 600,

		MaxConcurrentInstalls: 2,
		DownloadMaxRetries:    3,
		DownloadRetryCooldown: 0.2,
		DownloadRetryExponent: 4.0,

		UnsubscribePollIntervalMs: 1000,
		UnsubscribeMaxPolls:       60,
		ResetStateOnFailure:       false,

		LogFormat: "text",
		LogLevel:  "info",
	}
}

func defaultContentRoot() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "WorkshopEmu")
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".workshop-emu")
}

// Load reads settings from a JSON or YAML file, applying WORKSHOP_*
// environment overrides on top. A missing file yields defaults.
func Load(path string) (*Settings, error) {
	v := viper.New()
	setDefaults(v, DefaultSettings())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// setDefaults registers every field so AutomaticEnv can override keys that
// are absent from the file.
func setDefaults(v *viper.Viper, s *Settings) {
	v.SetDefault("content_root", s.ContentRoot)
	v.SetDefault("api_base", s.APIBase)
	v.SetDefault("storage_scheme", s.StorageScheme)
	v.SetDefault("storage_prefix", s.StoragePrefix)
	v.SetDefault("user_agent", s.UserAgent)
	v.SetDefault("poll_interval_ms", s.PollIntervalMs)
	v.SetDefault("stall_timeout_seconds", s.StallTimeoutSeconds)
	v.SetDefault("request_timeout_seconds", s.RequestTimeoutSeconds)
	v.SetDefault("download_timeout_seconds", s.DownloadTimeoutSeconds)
	v.SetDefault("max_concurrent_installs", s.MaxConcurrentInstalls)
	v.SetDefault("download_max_retries", s.DownloadMaxRetries)
	v.SetDefault("download_retry_cooldown", s.DownloadRetryCooldown)
	v.SetDefault("download_retry_exponent", s.DownloadRetryExponent)
	v.SetDefault("unsubscribe_poll_interval_ms", s.UnsubscribePollIntervalMs)
	v.SetDefault("unsubscribe_max_polls", s.UnsubscribeMaxPolls)
	v.SetDefault("reset_state_on_failure", s.ResetStateOnFailure)
	v.SetDefault("log_format", s.LogFormat)
	v.SetDefault("log_level", s.LogLevel)
}

// Save writes settings to path. Files ending in .yaml or .yml are written
// as YAML, anything else as indented JSON.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(s)
	default:
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings the registry and orchestrator cannot run with.
func (s *Settings) Validate() error {
	var errs []error
	if s.ContentRoot == "" {
		errs = append(errs, errors.New("content_root must be set"))
	}
	if s.APIBase == "" {
		errs = append(errs, errors.New("api_base must be set"))
	}
	if s.PollIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("poll_interval_ms must be positive, got %d", s.PollIntervalMs))
	}
	if s.StallTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("stall_timeout_seconds must be positive, got %d", s.StallTimeoutSeconds))
	}
	if s.RequestTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout_seconds must be positive, got %d", s.RequestTimeoutSeconds))
	}
	if s.MaxConcurrentInstalls <= 0 {
		errs = append(errs, fmt.Errorf("max_concurrent_installs must be positive, got %d", s.MaxConcurrentInstalls))
	}
	if s.UnsubscribeMaxPolls < 0 {
		errs = append(errs, fmt.Errorf("unsubscribe_max_polls must not be negative, got %d", s.UnsubscribeMaxPolls))
	}
	return errors.Join(errs...)
}

// PollInterval returns the job status polling interval.
func (s *Settings) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

// StallTimeout returns how long a job may go without observable change.
func (s *Settings) StallTimeout() time.Duration {
	return time.Duration(s.StallTimeoutSeconds) * time.Second
}

// RequestTimeout bounds each individual API call.
func (s *Settings) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// DownloadTimeout bounds a single artifact download.
func (s *Settings) DownloadTimeout() time.Duration {
	return time.Duration(s.DownloadTimeoutSeconds) * time.Second
}

// UnsubscribePollInterval returns the delay between drain checks in Unsubscribe.
func (s *Settings) UnsubscribePollInterval() time.Duration {
	return time.Duration(s.UnsubscribePollIntervalMs) * time.Millisecond
}

// RetryCooldown returns the fetch retry base delay.
func (s *Settings) RetryCooldown() time.Duration {
	return time.Duration(s.DownloadRetryCooldown * float64(time.Second))
}
