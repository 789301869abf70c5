// Package main provides the CompliOps server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/good-yellow-bee/compliops/internal/models"
)

// Watchtower source types.
const (
	SourceRotating = "rotating"
	SourceHTTP     = "http"
	SourceFile     = "file"
)

// Config represents the server configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Watchtower    WatchtowerConfig    `yaml:"watchtower"`
	Gemini        GeminiConfig        `yaml:"gemini"`
	Executor      ExecutorConfig      `yaml:"executor"`
	Auth          AuthConfig          `yaml:"auth"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Verbose       bool                `yaml:"-"` // set via CLI flag
}

// ServerConfig contains listener settings.
type ServerConfig struct {
	HTTPAddress    string `yaml:"http_address"`      // REST API listen address (default: :8000)
	MetricsAddress string `yaml:"metrics_address"`   // Prometheus listen address (default: :9090)
	RateLimitPerIP int    `yaml:"rate_limit_per_ip"` // Requests per minute on login and chat (default: 30)
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // default: ./data/compliops.db
}

// WatchtowerConfig configures the change monitor.
type WatchtowerConfig struct {
	Interval   string       `yaml:"interval"`     // Poll interval (default: 2m)
	Timeout    string       `yaml:"timeout"`      // Per-poll bound (default: interval)
	RunOnStart bool         `yaml:"run_on_start"` // Poll once immediately on start
	Source     SourceConfig `yaml:"source"`
}

// SourceConfig selects where regulatory text is read from.
type SourceConfig struct {
	Type string `yaml:"type"` // rotating, http or file (default: rotating)
	URL  string `yaml:"url"`  // for http
	Path string `yaml:"path"` // for file
}

// GeminiConfig configures the intelligence gateway. The API key is only read
// from the environment.
type GeminiConfig struct {
	Model            string  `yaml:"model"`
	Temperature      float32 `yaml:"temperature"`
	Timeout          string  `yaml:"timeout"`           // Per-call bound (default: 30s)
	FailureThreshold uint32  `yaml:"failure_threshold"` // Breaker trip count (default: 5)
}

// ExecutorConfig configures report generation.
type ExecutorConfig struct {
	MaxConcurrent int    `yaml:"max_concurrent"` // 0 means unbounded (default: 4)
	ProfilePath   string `yaml:"profile_path"`   // YAML company profile, empty uses the built-in one
	Timeout       string `yaml:"timeout"`        // Bound on the profile fetch (default: 30s)
}

// AuthConfig configures the login stub.
type AuthConfig struct {
	TokenTTL string `yaml:"token_ttl"` // default: 24h
}

// NotificationsConfig configures chat notifications for new alerts. Webhook
// URLs can also be set with COMPLIOPS_SLACK_WEBHOOK_URL and
// COMPLIOPS_TEAMS_WEBHOOK_URL.
type NotificationsConfig struct {
	MinImpact       string `yaml:"min_impact"`        // Low, Medium or High (default: High)
	SlackWebhookURL string `yaml:"slack_webhook_url"` // Slack incoming webhook
	TeamsWebhookURL string `yaml:"teams_webhook_url"` // Teams incoming webhook
	MaxPerMinute    int    `yaml:"max_per_minute"`    // default: 10
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8000"
	}
	if c.Server.MetricsAddress == "" {
		c.Server.MetricsAddress = ":9090"
	}
	if c.Server.RateLimitPerIP == 0 {
		c.Server.RateLimitPerIP = 30
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/compliops.db"
	}
	if c.Watchtower.Interval == "" {
		c.Watchtower.Interval = "2m"
	}
	if c.Watchtower.Source.Type == "" {
		c.Watchtower.Source.Type = SourceRotating
	}
	if c.Gemini.Timeout == "" {
		c.Gemini.Timeout = "30s"
	}
	if c.Executor.MaxConcurrent == 0 {
		c.Executor.MaxConcurrent = 4
	}
	if c.Executor.Timeout == "" {
		c.Executor.Timeout = "30s"
	}
	if c.Auth.TokenTTL == "" {
		c.Auth.TokenTTL = "24h"
	}
	if c.Notifications.MinImpact == "" {
		c.Notifications.MinImpact = "High"
	}
	if c.Notifications.MaxPerMinute == 0 {
		c.Notifications.MaxPerMinute = 10
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.HTTPAddress == "" {
		return fmt.Errorf("server.http_address is required")
	}
	if c.Server.RateLimitPerIP < 0 {
		return fmt.Errorf("server.rate_limit_per_ip must not be negative")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	durations := []struct {
		key   string
		value string
	}{
		{"watchtower.interval", c.Watchtower.Interval},
		{"watchtower.timeout", c.Watchtower.Timeout},
		{"gemini.timeout", c.Gemini.Timeout},
		{"executor.timeout", c.Executor.Timeout},
		{"auth.token_ttl", c.Auth.TokenTTL},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("%s: invalid duration %q: %w", d.key, d.value, err)
		}
		if v <= 0 {
			return fmt.Errorf("%s must be positive", d.key)
		}
	}

	switch c.Watchtower.Source.Type {
	case SourceRotating:
	case SourceHTTP:
		if c.Watchtower.Source.URL == "" {
			return fmt.Errorf("watchtower.source.url is required for http sources")
		}
	case SourceFile:
		if c.Watchtower.Source.Path == "" {
			return fmt.Errorf("watchtower.source.path is required for file sources")
		}
	default:
		return fmt.Errorf("watchtower.source.type %q is not one of rotating, http, file", c.Watchtower.Source.Type)
	}

	if c.Executor.MaxConcurrent < 0 {
		return fmt.Errorf("executor.max_concurrent must not be negative")
	}
	if _, ok := models.ParseImpactLevel(c.Notifications.MinImpact); !ok {
		return fmt.Errorf("notifications.min_impact %q is not one of Low, Medium, High", c.Notifications.MinImpact)
	}
	if c.Notifications.MaxPerMinute < 0 {
		return fmt.Errorf("notifications.max_per_minute must not be negative")
	}
	return nil
}

// duration parses a value already checked by Validate, or returns 0 when unset.
func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
