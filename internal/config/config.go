// Package config provides configuration management for the CloudWatch Logs MCP server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Transports the server can be exposed over.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds all configuration for the MCP server
type Config struct {
	// AWS
	Region     string        `json:"region" yaml:"region" envconfig:"AWS_REGION"`
	Profile    string        `json:"profile,omitempty" yaml:"profile" envconfig:"AWS_PROFILE"`
	MaxRetries int           `json:"max_retries" yaml:"max_retries" envconfig:"LOGS_MAX_RETRIES"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout" envconfig:"LOGS_TIMEOUT"` // per AWS API call

	// Rate Limiting
	RateLimit       int  `json:"rate_limit" yaml:"rate_limit" envconfig:"LOGS_RATE_LIMIT"` // requests per second
	RateLimitBurst  int  `json:"rate_limit_burst" yaml:"rate_limit_burst" envconfig:"LOGS_RATE_LIMIT_BURST"`
	EnableRateLimit bool `json:"enable_rate_limit" yaml:"enable_rate_limit" envconfig:"LOGS_ENABLE_RATE_LIMIT"`

	// Logs Insights queries
	PollInterval        time.Duration `json:"poll_interval" yaml:"poll_interval" envconfig:"LOGS_POLL_INTERVAL"`
	DefaultQueryTimeout time.Duration `json:"default_query_timeout" yaml:"default_query_timeout" envconfig:"LOGS_DEFAULT_QUERY_TIMEOUT"`
	MaxQueryTimeout     time.Duration `json:"max_query_timeout" yaml:"max_query_timeout" envconfig:"LOGS_MAX_QUERY_TIMEOUT"`
	ToolTimeout         time.Duration `json:"tool_timeout" yaml:"tool_timeout" envconfig:"LOGS_TOOL_TIMEOUT"` // tools that do not poll

	// Transport
	Transport string `json:"transport" yaml:"transport" envconfig:"LOGS_TRANSPORT"`
	HTTPAddr  string `json:"http_addr" yaml:"http_addr" envconfig:"LOGS_HTTP_ADDR"`

	// Health server, 0 disables it
	HealthPort      int           `json:"health_port" yaml:"health_port" envconfig:"LOGS_HEALTH_PORT"`
	HealthBindAddr  string        `json:"health_bind_addr" yaml:"health_bind_addr" envconfig:"LOGS_HEALTH_BIND_ADDR"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" envconfig:"LOGS_SHUTDOWN_TIMEOUT"`

	// Observability
	EnableTracing   bool `json:"enable_tracing" yaml:"enable_tracing" envconfig:"LOGS_ENABLE_TRACING"`
	EnableAuditLog  bool `json:"enable_audit_log" yaml:"enable_audit_log" envconfig:"LOGS_ENABLE_AUDIT_LOG"`
	MetricsEndpoint bool `json:"metrics_endpoint" yaml:"metrics_endpoint" envconfig:"LOGS_METRICS_ENDPOINT"`

	// Logging
	LogLevel  string `json:"log_level" yaml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat string `json:"log_format" yaml:"log_format" envconfig:"LOG_FORMAT"` // json or console
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Region:              "us-east-1",
		MaxRetries:          3,
		Timeout:             30 * time.Second,
		RateLimit:           10,
		RateLimitBurst:      20,
		EnableRateLimit:     true,
		PollInterval:        1 * time.Second,
		DefaultQueryTimeout: 30 * time.Second,
		MaxQueryTimeout:     10 * time.Minute,
		ToolTimeout:         2 * time.Minute,
		Transport:           TransportStdio,
		HTTPAddr:            "127.0.0.1:8080",
		HealthPort:          8081,
		HealthBindAddr:      "127.0.0.1",
		ShutdownTimeout:     10 * time.Second,
		EnableTracing:       false,
		EnableAuditLog:      true,
		MetricsEndpoint:     false,
		LogLevel:            "info",
		LogFormat:           "json",
	}
}

// Load configuration from defaults, the optional CONFIG_FILE (YAML or JSON)
// and environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	cfg := Default()

	if configFile := os.Getenv("CONFIG_FILE"); configFile != "" {
		if err := loadFromFile(cfg, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}

	return cfg, nil
}

func loadFromFile(cfg *Config, path string) error {
	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("invalid file path: path traversal detected")
	}

	data, err := os.ReadFile(cleanPath) // #nosec G304 -- path is validated above
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// YAML is a superset of JSON, so both formats decode here.
	return yaml.Unmarshal(data, cfg)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Region == "" {
		return errors.New("AWS_REGION must not be empty")
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return errors.New("max_retries must be non-negative")
	}
	if c.RateLimit <= 0 && c.EnableRateLimit {
		return errors.New("rate_limit must be positive when rate limiting is enabled")
	}
	if c.PollInterval <= 0 {
		return errors.New("poll_interval must be positive")
	}
	if c.DefaultQueryTimeout <= 0 {
		return errors.New("default_query_timeout must be positive")
	}
	if c.MaxQueryTimeout < c.DefaultQueryTimeout {
		return errors.New("max_query_timeout must not be less than default_query_timeout")
	}
	if c.ToolTimeout <= 0 {
		return errors.New("tool_timeout must be positive")
	}
	if c.Transport != TransportStdio && c.Transport != TransportHTTP {
		return fmt.Errorf("invalid transport: %s", c.Transport)
	}
	if c.Transport == TransportHTTP && c.HTTPAddr == "" {
		return errors.New("http_addr is required for the http transport")
	}
	if c.HealthPort < 0 || c.HealthPort > 65535 {
		return fmt.Errorf("invalid health port: %d", c.HealthPort)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return fmt.Errorf("invalid log format: %s", c.LogFormat)
	}

	return nil
}

// Redact returns a copy of the config that is safe to show to clients
func (c *Config) Redact() *Config {
	redacted := *c
	redacted.Profile = MaskValue(redacted.Profile)
	return &redacted
}

// MaskValue returns a masked version of an identifying value for safe logging
func MaskValue(value string) string {
	if value == "" {
		return ""
	}
	if len(value) <= 8 {
		return "***"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
