// internal/config/config.go

// Package config loads and validates the YAML job file that drives a
// run: start URL, item schema, navigation, browser, pacing, output, and
// monitoring settings.
package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jungyu/DataScout-sub003/internal/dom"
	"github.com/jungyu/DataScout-sub003/internal/monitoring"
	"github.com/jungyu/DataScout-sub003/internal/output"
	"github.com/jungyu/DataScout-sub003/internal/schema"
)

// JobConfig is the top-level job definition.
type JobConfig struct {
	Name       string                `yaml:"name" json:"name"`
	StartURL   string                `yaml:"start_url" json:"start_url"`
	Items      schema.ItemSpec       `yaml:"items" json:"items"`
	Navigation schema.NavigationSpec `yaml:"navigation" json:"navigation"`
	Engine     EngineConfig          `yaml:"engine,omitempty" json:"engine,omitempty"`
	Browser    *dom.ChromeConfig     `yaml:"browser,omitempty" json:"browser,omitempty"`
	Outputs    []output.Config       `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	Monitoring MonitoringConfig      `yaml:"monitoring,omitempty" json:"monitoring,omitempty"`
	LogLevel   string                `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// EngineConfig tunes the pagination controller.
type EngineConfig struct {
	MaxPages          int           `yaml:"max_pages,omitempty" json:"max_pages,omitempty"`
	MaxRetries        int           `yaml:"max_retries,omitempty" json:"max_retries,omitempty"`
	RetryBackoff      time.Duration `yaml:"retry_backoff,omitempty" json:"retry_backoff,omitempty"`
	PageDelay         time.Duration `yaml:"page_delay,omitempty" json:"page_delay,omitempty"`
	AjaxSettleTimeout time.Duration `yaml:"ajax_settle_timeout,omitempty" json:"ajax_settle_timeout,omitempty"`
	RateLimit         float64       `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
	IdentityField     string        `yaml:"identity_field,omitempty" json:"identity_field,omitempty"`
}

// MonitoringConfig enables the metrics endpoint for a run.
type MonitoringConfig struct {
	Enabled bool                     `yaml:"enabled" json:"enabled"`
	Server  monitoring.ServerConfig  `yaml:"server,omitempty" json:"server,omitempty"`
	Metrics monitoring.MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty"`
}

// LoadFromFile loads a job config from a YAML file.
func LoadFromFile(filename string) (*JobConfig, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read configuration file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromReader loads a job config from a reader.
func LoadFromReader(reader io.Reader) (*JobConfig, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses, expands environment variables in, defaults, and
// validates a job config.
func LoadFromBytes(data []byte) (*JobConfig, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	expanded := os.ExpandEnv(string(data))

	var cfg JobConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse YAML configuration: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *JobConfig) applyDefaults() {
	if c.Name == "" {
		c.Name = "job"
	}
	if c.Browser == nil {
		c.Browser = dom.DefaultChromeConfig()
	}
	if c.Engine.MaxPages == 0 {
		c.Engine.MaxPages = 50
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks the job config and every nested spec.
func (c *JobConfig) Validate() error {
	if c.StartURL == "" {
		return fmt.Errorf("start_url is required")
	}
	if err := c.Items.Validate(); err != nil {
		return fmt.Errorf("items: %w", err)
	}
	if err := c.Navigation.Validate(); err != nil {
		return fmt.Errorf("navigation: %w", err)
	}
	for i := range c.Outputs {
		if err := c.Outputs[i].Validate(); err != nil {
			return fmt.Errorf("outputs[%d]: %w", i, err)
		}
	}
	if c.Engine.MaxPages < 0 {
		return fmt.Errorf("engine: max_pages cannot be negative")
	}
	if c.Engine.RateLimit < 0 {
		return fmt.Errorf("engine: rate_limit cannot be negative")
	}
	return nil
}
