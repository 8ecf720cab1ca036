// Package config loads and validates service configuration.
//
// Precedence: explicit config file > RELAY_* environment variables >
// config file discovered on the search path > defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix. A key like
// server.port maps to RELAY_SERVER_PORT.
const EnvPrefix = "RELAY"

// Config is the root configuration for the replication service.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Source      StoreConfig       `mapstructure:"source"`
	Destination DestinationConfig `mapstructure:"destination"`
	Replication ReplicationConfig `mapstructure:"replication"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimit     `mapstructure:"rate_limit"`
}

// RateLimit configures the per-instance request rate limiter.
type RateLimit struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// StoreConfig holds connection settings for an object store.
type StoreConfig struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	Profile         string `mapstructure:"profile"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
}

// DestinationConfig names the replica bucket and how to reach it.
type DestinationConfig struct {
	StoreConfig `mapstructure:",squash"`

	Bucket string `mapstructure:"bucket"`
}

// ReplicationConfig configures replication behavior.
type ReplicationConfig struct {
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`
	UploadTimeout  time.Duration `mapstructure:"upload_timeout"`
	OnCheckError   string        `mapstructure:"on_check_error"`
	Includes       []string      `mapstructure:"includes"`
	Excludes       []string      `mapstructure:"excludes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "330s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit.enabled", false)
	v.SetDefault("server.rate_limit.rps", 10.0)
	v.SetDefault("server.rate_limit.burst", 20)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	// Store keys default to empty so environment-only settings are
	// visible to Unmarshal (viper resolves env vars for known keys only).
	for _, section := range []string{"source", "destination"} {
		v.SetDefault(section+".region", "")
		v.SetDefault(section+".endpoint", "")
		v.SetDefault(section+".profile", "")
		v.SetDefault(section+".access_key_id", "")
		v.SetDefault(section+".secret_access_key", "")
		v.SetDefault(section+".force_path_style", false)
	}
	v.SetDefault("destination.bucket", "")

	v.SetDefault("replication.max_retries", 3)
	v.SetDefault("replication.retry_base_delay", "1s")
	v.SetDefault("replication.upload_timeout", "300s")
	v.SetDefault("replication.on_check_error", "recopy")
	v.SetDefault("replication.includes", []string{})
	v.SetDefault("replication.excludes", []string{})
}

// Load reads configuration from the given file (optional), the search
// path, and the environment.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("relay")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/relay")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
			// No config file is fine: env vars and defaults apply.
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for errors a server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [0, 65535], got %d", c.Server.Port)
	}
	if c.Replication.MaxRetries < 1 {
		return fmt.Errorf("replication.max_retries must be at least 1, got %d", c.Replication.MaxRetries)
	}
	switch c.Replication.OnCheckError {
	case "recopy", "fail":
	default:
		return fmt.Errorf("replication.on_check_error must be \"recopy\" or \"fail\", got %q", c.Replication.OnCheckError)
	}
	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RPS <= 0 {
		return fmt.Errorf("server.rate_limit.rps must be positive, got %v", c.Server.RateLimit.RPS)
	}
	return nil
}

// ValidateForServe additionally requires the settings the HTTP service
// cannot run without. The one-shot copy command supplies these on the
// command line instead.
func (c *Config) ValidateForServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Destination.Bucket == "" {
		return errors.New("destination.bucket is required")
	}
	return nil
}
