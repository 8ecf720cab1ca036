package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 330*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 120*time.Second, cfg.Server.IdleTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Server.RateLimit.Enabled)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "structured", cfg.Logging.Profile)

	assert.Equal(t, 3, cfg.Replication.MaxRetries)
	assert.Equal(t, time.Second, cfg.Replication.RetryBaseDelay)
	assert.Equal(t, 300*time.Second, cfg.Replication.UploadTimeout)
	assert.Equal(t, "recopy", cfg.Replication.OnCheckError)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("RELAY_SERVER_PORT", "3000")
	t.Setenv("RELAY_LOGGING_LEVEL", "warn")
	t.Setenv("RELAY_DESTINATION_BUCKET", "replica")
	t.Setenv("RELAY_REPLICATION_MAX_RETRIES", "5")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "replica", cfg.Destination.Bucket)
	assert.Equal(t, 5, cfg.Replication.MaxRetries)
}

func TestLoad_DurationFromEnv(t *testing.T) {
	t.Setenv("RELAY_SERVER_READ_TIMEOUT", "45s")
	t.Setenv("RELAY_REPLICATION_UPLOAD_TIMEOUT", "2m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Replication.UploadTimeout)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
source:
  region: eu-west-1
destination:
  bucket: replica
  endpoint: https://storage.example.com
  force_path_style: true
replication:
  includes:
    - "raw-logs/**"
  excludes:
    - "**/*.tmp"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "eu-west-1", cfg.Source.Region)
	assert.Equal(t, "replica", cfg.Destination.Bucket)
	assert.Equal(t, "https://storage.example.com", cfg.Destination.Endpoint)
	assert.True(t, cfg.Destination.ForcePathStyle)
	assert.Equal(t, []string{"raw-logs/**"}, cfg.Replication.Includes)
	assert.Equal(t, []string{"**/*.tmp"}, cfg.Replication.Excludes)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9000\n"), 0o644))

	t.Setenv("RELAY_SERVER_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	t.Run("bad port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = 70000
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero retries", func(t *testing.T) {
		cfg := base()
		cfg.Replication.MaxRetries = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad check policy", func(t *testing.T) {
		cfg := base()
		cfg.Replication.OnCheckError = "retry"
		assert.Error(t, cfg.Validate())
	})

	t.Run("rate limit needs positive rps", func(t *testing.T) {
		cfg := base()
		cfg.Server.RateLimit.Enabled = true
		cfg.Server.RateLimit.RPS = 0
		assert.Error(t, cfg.Validate())
	})
}

func TestValidateForServe(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.ValidateForServe()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "destination.bucket")

	cfg.Destination.Bucket = "replica"
	assert.NoError(t, cfg.ValidateForServe())
}
