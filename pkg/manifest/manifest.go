// Package manifest loads replication job manifests.
//
// A job manifest describes one single-object replication: where the source
// and destination stores live, which object to copy, and the retry/timeout
// budget. It is the file-driven equivalent of a POST /v1/replicate request,
// used by the one-shot copy command.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Version is the manifest schema version this package accepts.
const Version = "1.0"

// Manifest validation errors.
var (
	// ErrEmptyManifest indicates the manifest file had no content.
	ErrEmptyManifest = errors.New("manifest file is empty")

	// ErrUnsupportedVersion indicates an unknown manifest version.
	ErrUnsupportedVersion = errors.New("unsupported manifest version")
)

// Manifest represents a validated replication job manifest.
type Manifest struct {
	// Version is the manifest schema version. Must be "1.0".
	Version string `yaml:"version"`

	// Source configures the source store connection and names the object.
	Source SourceConfig `yaml:"source"`

	// Destination configures the destination store connection.
	Destination DestinationConfig `yaml:"destination"`

	// Replication configures retry and timeout behavior.
	Replication ReplicationConfig `yaml:"replication,omitempty"`
}

// ConnectionConfig holds store connection settings shared by both sides.
type ConnectionConfig struct {
	// Region is the store region.
	Region string `yaml:"region,omitempty"`

	// Endpoint is a custom endpoint URL for S3-compatible stores.
	Endpoint string `yaml:"endpoint,omitempty"`

	// Profile is the AWS shared-config profile to use.
	Profile string `yaml:"profile,omitempty"`

	// ForcePathStyle forces path-style URLs (required by most
	// S3-compatible stores).
	ForcePathStyle bool `yaml:"force_path_style,omitempty"`
}

// SourceConfig names the object to replicate and how to reach it.
type SourceConfig struct {
	ConnectionConfig `yaml:",inline"`

	// Bucket is the source namespace (required).
	Bucket string `yaml:"bucket"`

	// Key is the source object key (required).
	Key string `yaml:"key"`
}

// DestinationConfig names the replica namespace and how to reach it.
type DestinationConfig struct {
	ConnectionConfig `yaml:",inline"`

	// Bucket is the destination namespace (required).
	Bucket string `yaml:"bucket"`
}

// ReplicationConfig configures retry and timeout behavior.
type ReplicationConfig struct {
	// MaxRetries is the attempt budget for retried store calls.
	MaxRetries int `yaml:"max_retries,omitempty"`

	// RetryBaseDelay is the unit of the exponential backoff schedule.
	RetryBaseDelay time.Duration `yaml:"retry_base_delay,omitempty"`

	// UploadTimeout bounds each upload attempt.
	UploadTimeout time.Duration `yaml:"upload_timeout,omitempty"`

	// OnCheckError selects the existence-check failure policy:
	// "recopy" (default) or "fail".
	OnCheckError string `yaml:"on_check_error,omitempty"`
}

// Defaults applied by ApplyDefaults.
const (
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = time.Second
	DefaultUploadTimeout  = 300 * time.Second
	DefaultOnCheckError   = "recopy"
)

// Load reads and validates a manifest from the given file path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("manifest file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses and validates a manifest from raw YAML bytes.
//
// Unknown fields are rejected so typos fail loudly instead of being
// silently ignored.
func LoadFromBytes(data []byte) (*Manifest, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyManifest
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.ApplyDefaults()
	return &m, nil
}

// Validate checks required fields and version compatibility.
func (m *Manifest) Validate() error {
	if m.Version != Version {
		return fmt.Errorf("%w: %q (want %q)", ErrUnsupportedVersion, m.Version, Version)
	}
	if m.Source.Bucket == "" {
		return errors.New("source.bucket is required")
	}
	if m.Source.Key == "" {
		return errors.New("source.key is required")
	}
	if m.Destination.Bucket == "" {
		return errors.New("destination.bucket is required")
	}
	switch m.Replication.OnCheckError {
	case "", DefaultOnCheckError, "fail":
	default:
		return fmt.Errorf("replication.on_check_error must be \"recopy\" or \"fail\", got %q", m.Replication.OnCheckError)
	}
	return nil
}

// ApplyDefaults fills optional replication settings.
func (m *Manifest) ApplyDefaults() {
	if m.Replication.MaxRetries <= 0 {
		m.Replication.MaxRetries = DefaultMaxRetries
	}
	if m.Replication.RetryBaseDelay <= 0 {
		m.Replication.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if m.Replication.UploadTimeout <= 0 {
		m.Replication.UploadTimeout = DefaultUploadTimeout
	}
	if m.Replication.OnCheckError == "" {
		m.Replication.OnCheckError = DefaultOnCheckError
	}
}
