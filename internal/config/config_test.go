package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.DefaultQueryTimeout)
	assert.Equal(t, TransportStdio, cfg.Transport)
	assert.True(t, cfg.EnableRateLimit)
}

func TestLoadFromEnv(t *testing.T) {
	os.Clearenv()
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AWS_PROFILE", "observability")
	t.Setenv("LOGS_POLL_INTERVAL", "250ms")
	t.Setenv("LOGS_DEFAULT_QUERY_TIMEOUT", "45s")
	t.Setenv("LOGS_ENABLE_RATE_LIMIT", "false")
	t.Setenv("LOGS_HEALTH_PORT", "0")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, "observability", cfg.Profile)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 45*time.Second, cfg.DefaultQueryTimeout)
	assert.False(t, cfg.EnableRateLimit)
	assert.Equal(t, 0, cfg.HealthPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRejectsMalformedEnv(t *testing.T) {
	os.Clearenv()
	t.Setenv("LOGS_POLL_INTERVAL", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	os.Clearenv()
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("region: ap-southeast-2\npoll_interval: 2s\ntransport: http\n"), 0o600))
	t.Setenv("CONFIG_FILE", yamlPath)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "ap-southeast-2", cfg.Region)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, TransportHTTP, cfg.Transport)

	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"region": "us-west-2", "max_retries": 5}`), 0o600))
	t.Setenv("CONFIG_FILE", jsonPath)
	t.Setenv("AWS_REGION", "eu-central-1")

	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "eu-central-1", cfg.Region, "environment wins over the file")
	assert.Equal(t, 5, cfg.MaxRetries)
}

func TestLoadFromFileRejectsTraversal(t *testing.T) {
	os.Clearenv()
	t.Setenv("CONFIG_FILE", "../../etc/passwd")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty region", func(c *Config) { c.Region = "" }, true},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }, true},
		{"max below default", func(c *Config) { c.MaxQueryTimeout = time.Second }, true},
		{"unknown transport", func(c *Config) { c.Transport = "grpc" }, true},
		{"http without addr", func(c *Config) { c.Transport = TransportHTTP; c.HTTPAddr = "" }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }, true},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"rate limit off allows zero", func(c *Config) { c.EnableRateLimit = false; c.RateLimit = 0 }, false},
		{"health port out of range", func(c *Config) { c.HealthPort = 70000 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRedact(t *testing.T) {
	cfg := Default()
	cfg.Profile = "production-admin"

	redacted := cfg.Redact()
	assert.Equal(t, "prod...dmin", redacted.Profile)
	assert.Equal(t, "production-admin", cfg.Profile, "original must be untouched")
	assert.Equal(t, "***", MaskValue("short"))
	assert.Equal(t, "", MaskValue(""))
}
