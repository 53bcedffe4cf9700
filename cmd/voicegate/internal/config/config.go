// Package config loads the voicegate server configuration from YAML.
//
// Example:
//
//	listen: :8080
//	idle_timeout_seconds: 300
//	prompts_file: /etc/voicegate/prompts.txt
//	storage:
//	  artifacts:
//	    backend: s3
//	    bucket: voicegate-artifacts
//	    region: us-east-1
//	  keys:
//	    backend: local
//	    dir: /var/lib/voicegate/keys
//	registry:
//	  dir: /var/lib/voicegate/registry
//	spoof:
//	  endpoint: http://127.0.0.1:9100/classify
//	embedding:
//	  endpoint: http://127.0.0.1:9200/embed
//	transcription:
//	  api_key: sk-...
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// BlobConfig configures one blob store. Backend is "local" or "s3".
type BlobConfig struct {
	Backend string `yaml:"backend"`

	// Local backend.
	Dir string `yaml:"dir,omitempty"`

	// S3 backend. Endpoint is optional and enables S3-compatible stores
	// (MinIO, R2); static credentials are optional when the environment
	// provides them.
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	Region    string `yaml:"region,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
}

// Validate checks the backend-specific required fields.
func (c *BlobConfig) Validate(name string) error {
	switch c.Backend {
	case "local":
		if c.Dir == "" {
			return fmt.Errorf("config: %s: local backend requires dir", name)
		}
	case "s3":
		if c.Bucket == "" {
			return fmt.Errorf("config: %s: s3 backend requires bucket", name)
		}
		if c.Region == "" && c.Endpoint == "" {
			return fmt.Errorf("config: %s: s3 backend requires region or endpoint", name)
		}
	case "":
		return fmt.Errorf("config: %s: backend is required (local or s3)", name)
	default:
		return fmt.Errorf("config: %s: unknown backend %q", name, c.Backend)
	}
	return nil
}

// StorageConfig holds the two independent blob stores.
type StorageConfig struct {
	Artifacts BlobConfig `yaml:"artifacts"`
	Keys      BlobConfig `yaml:"keys"`
}

// RegistryConfig configures the enrollment record store. An empty Dir
// keeps records in memory (lost on restart; tests and demos only).
type RegistryConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// ServiceConfig points at an HTTP inference sidecar.
type ServiceConfig struct {
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key,omitempty"`
}

// EmbeddingConfig configures the speaker-embedding sidecar.
type EmbeddingConfig struct {
	Endpoint  string `yaml:"endpoint"`
	APIKey    string `yaml:"api_key,omitempty"`
	Dimension int    `yaml:"dimension,omitempty"`
}

// TranscriptionConfig configures the speech-to-text backend.
type TranscriptionConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url,omitempty"`
	Model       string `yaml:"model,omitempty"`
	MaxAttempts int    `yaml:"max_attempts,omitempty"`
}

// MatcherConfig tunes enrollment re-verification.
type MatcherConfig struct {
	Threshold float32 `yaml:"threshold,omitempty"`
	MinVotes  int     `yaml:"min_votes,omitempty"`
}

// Config is the top-level server configuration.
type Config struct {
	Listen      string `yaml:"listen,omitempty"`
	PromptsFile string `yaml:"prompts_file,omitempty"`

	// IdleTimeoutSeconds evicts sessions idle for this long. Zero uses
	// the session package default.
	IdleTimeoutSeconds int `yaml:"idle_timeout_seconds,omitempty"`

	Storage       StorageConfig       `yaml:"storage"`
	Registry      RegistryConfig      `yaml:"registry,omitempty"`
	Spoof         ServiceConfig       `yaml:"spoof"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Matcher       MatcherConfig       `yaml:"matcher,omitempty"`
}

// DefaultListen is the default HTTP listen address.
const DefaultListen = ":8080"

// Load reads and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if err := c.Storage.Artifacts.Validate("storage.artifacts"); err != nil {
		return err
	}
	if err := c.Storage.Keys.Validate("storage.keys"); err != nil {
		return err
	}
	if c.Spoof.Endpoint == "" {
		return fmt.Errorf("config: spoof.endpoint is required")
	}
	if c.Embedding.Endpoint == "" {
		return fmt.Errorf("config: embedding.endpoint is required")
	}
	if c.Transcription.APIKey == "" {
		return fmt.Errorf("config: transcription.api_key is required")
	}
	return nil
}
