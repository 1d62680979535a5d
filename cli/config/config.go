package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/pithecene-io/chipstream/stream"
)

// DefaultFileName is the config file picked up from the working directory
// when --config is not given.
const DefaultFileName = "chipstream.yaml"

// Config represents a chipstream.yaml configuration file.
// All values are optional and act as defaults for chipstream run flags.
// CLI flags always override config values.
type Config struct {
	OutputRoot string        `yaml:"output_root"`
	Sink       string        `yaml:"sink"`
	EventLimit *int          `yaml:"event_limit,omitempty"`
	Report     string        `yaml:"report"`
	Storage    StorageConfig `yaml:"storage"`
	Adapter    AdapterConfig `yaml:"adapter"`
}

// StorageConfig holds Lode mirror defaults from the config file.
type StorageConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds run-completed notification defaults.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks enumerated values. Empty values are always valid.
func (c *Config) Validate() error {
	var errs []error
	if c.Sink != "" {
		if _, err := stream.ParseMode(c.Sink); err != nil {
			errs = append(errs, fmt.Errorf("sink: %w", err))
		}
	}
	if c.EventLimit != nil && *c.EventLimit < 0 {
		errs = append(errs, fmt.Errorf("event_limit must be >= 0, got %d", *c.EventLimit))
	}
	switch c.Storage.Backend {
	case "", "fs", "s3":
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be fs or s3, got %q", c.Storage.Backend))
	}
	switch c.Adapter.Type {
	case "", "webhook", "redis":
	default:
		errs = append(errs, fmt.Errorf("adapter.type must be webhook or redis, got %q", c.Adapter.Type))
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		errs = append(errs, fmt.Errorf("adapter.retries must be >= 0, got %d", *c.Adapter.Retries))
	}
	return errors.Join(errs...)
}
