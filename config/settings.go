package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wudi/preflight/security"
)

// Settings configure the preflight CLI.
type Settings struct {
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
	// Concurrency bounds parallel page evaluation. 1 disables it.
	Concurrency int `yaml:"concurrency"`
	// Profile is a YAML profile path. Empty selects the base PDF/X profile.
	Profile string `yaml:"profile"`
	// Format selects the report renderer.
	Format  string        `yaml:"format"`
	Metrics MetricsConfig `yaml:"metrics"`
	NATS    NATSConfig    `yaml:"nats"`
	Watch   WatchConfig   `yaml:"watch"`
	Limits  LimitsConfig  `yaml:"limits"`
}

// LimitsConfig bounds the work done per document. Zero keeps the default.
type LimitsConfig struct {
	MaxPages       int   `yaml:"max_pages"`
	MaxTreeDepth   int   `yaml:"max_tree_depth"`
	MaxStreamBytes int64 `yaml:"max_stream_bytes"`
}

// Security converts the configured bounds, filling unset ones from
// security.DefaultLimits.
func (l LimitsConfig) Security() security.Limits {
	return security.Limits{
		MaxIndirectDepth: l.MaxTreeDepth,
		MaxPages:         l.MaxPages,
		MaxStreamLength:  l.MaxStreamBytes,
	}.WithDefaults()
}

// MetricsConfig configures the Prometheus endpoint served by watch.
type MetricsConfig struct {
	// Addr is the listen address, e.g. ":9090". Empty disables the endpoint.
	Addr string `yaml:"addr"`
}

// NATSConfig configures report publication.
type NATSConfig struct {
	// URL is the NATS server URL. Empty disables publication.
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// WatchConfig configures the hot folder.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	Patterns []string      `yaml:"patterns"`
}

// DefaultSettings returns Settings with sensible defaults.
func DefaultSettings() *Settings {
	return &Settings{
		LogLevel:    "info",
		Concurrency: 1,
		Format:      "text",
		NATS:        NATSConfig{Subject: "preflight.reports"},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
			Patterns: []string{"*.pdf"},
		},
	}
}

var formats = map[string]bool{"text": true, "json": true, "markdown": true, "html": true}

// Validate checks that the settings are usable.
func (s *Settings) Validate() error {
	switch s.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", s.LogLevel)
	}
	if s.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1")
	}
	if !formats[s.Format] {
		return fmt.Errorf("format %q is not supported", s.Format)
	}
	if s.NATS.URL != "" && s.NATS.Subject == "" {
		return fmt.Errorf("nats.subject is required when nats.url is set")
	}
	if s.Limits.MaxPages < 0 || s.Limits.MaxTreeDepth < 0 || s.Limits.MaxStreamBytes < 0 {
		return fmt.Errorf("limits must not be negative")
	}
	if s.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	return nil
}

// LoadSettings reads settings from a YAML file on top of the defaults.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
