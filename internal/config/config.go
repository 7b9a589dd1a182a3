// Package config provides the configuration structure for the voice-cloner service.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment override, e.g. VOICECLONE_ENGINE_SERVICE_URL.
const EnvPrefix = "VOICECLONE_"

// Engine and storage backends.
const (
	EngineBackendHTTP    = "http"
	EngineBackendCommand = "command"
	StorageBackendFile   = "file"
	StorageBackendNATS   = "nats"
)

// Default values.
const (
	defaultListenAddr         = ":8080"
	defaultMaxUploadMB        = 64
	defaultReadTimeoutSecs    = 60
	defaultServiceURL         = "http://127.0.0.1:8000"
	defaultBinaryPath         = "tortoise_tts"
	defaultEngineTimeoutSecs  = 900
	defaultMaxConcurrent      = 1
	defaultVoicesDir          = "voices"
	defaultMinSamples         = 2
	defaultMaxSamples         = 5
	defaultMinSampleSeconds   = 6
	defaultMaxSampleSeconds   = 10
	defaultClipsDir           = "clips"
	defaultRetentionMinutes   = 60
	defaultNATSURL            = "nats://127.0.0.1:4222"
	defaultCloneSubject       = "voice.clone.requested"
	defaultClipBucket         = "VOICE_CLIPS"
	defaultBaseLogsDir        = "logs"
	minimumRequiredSampleSize = 1
)

// Validation errors.
var (
	ErrUnknownEngineBackend  = errors.New("unknown engine backend")
	ErrUnknownStorageBackend = errors.New("unknown storage backend")
	ErrServiceURLEmpty       = errors.New("engine service url cannot be empty")
	ErrBinaryPathEmpty       = errors.New("engine binary path cannot be empty")
	ErrSampleBounds          = errors.New("invalid sample count bounds")
	ErrNATSRequired          = errors.New("nats must be enabled for the nats storage backend")
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	ListenAddr         string `toml:"listen_addr"          env:"LISTEN_ADDR"`
	MaxUploadMB        int64  `toml:"max_upload_mb"        env:"MAX_UPLOAD_MB"`
	ReadTimeoutSeconds int    `toml:"read_timeout_seconds" env:"READ_TIMEOUT_SECONDS"`
}

// EngineConfig holds the external voice cloning engine settings.
type EngineConfig struct {
	Backend        string `toml:"backend"         env:"BACKEND"`
	ServiceURL     string `toml:"service_url"     env:"SERVICE_URL"`
	BinaryPath     string `toml:"binary_path"     env:"BINARY_PATH"`
	TimeoutSeconds int    `toml:"timeout_seconds" env:"TIMEOUT_SECONDS"`
	MaxConcurrent  int    `toml:"max_concurrent"  env:"MAX_CONCURRENT"`
}

// StagingConfig holds the voice sample staging settings.
type StagingConfig struct {
	VoicesDir        string  `toml:"voices_dir"         env:"VOICES_DIR"`
	MinSamples       int     `toml:"min_samples"        env:"MIN_SAMPLES"`
	MaxSamples       int     `toml:"max_samples"        env:"MAX_SAMPLES"`
	MinSampleSeconds float64 `toml:"min_sample_seconds" env:"MIN_SAMPLE_SECONDS"`
	MaxSampleSeconds float64 `toml:"max_sample_seconds" env:"MAX_SAMPLE_SECONDS"`
}

// StorageConfig holds the generated clip storage settings.
type StorageConfig struct {
	Backend          string `toml:"backend"           env:"BACKEND"`
	ClipsDir         string `toml:"clips_dir"         env:"CLIPS_DIR"`
	RetentionMinutes int    `toml:"retention_minutes" env:"RETENTION_MINUTES"`
}

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	Enabled      bool   `toml:"enabled"       env:"ENABLED"`
	URL          string `toml:"url"           env:"URL"`
	CloneSubject string `toml:"clone_subject" env:"CLONE_SUBJECT"`
	ClipBucket   string `toml:"clip_bucket"   env:"CLIP_BUCKET"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir" env:"BASE_LOGS_DIR"`
}

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `toml:"server"  envPrefix:"SERVER_"`
	Engine  EngineConfig  `toml:"engine"  envPrefix:"ENGINE_"`
	Staging StagingConfig `toml:"staging" envPrefix:"STAGING_"`
	Storage StorageConfig `toml:"storage" envPrefix:"STORAGE_"`
	NATS    NATSConfig    `toml:"nats"    envPrefix:"NATS_"`
	Paths   PathsConfig   `toml:"paths"   envPrefix:"PATHS_"`
}

// Load loads the configuration through the central configurator, then applies
// environment overrides and defaults.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return finalize(&cfg)
}

// LoadFile reads a TOML configuration file from disk.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return Parse(data)
}

// Parse decodes TOML data, applies environment overrides and defaults, and
// validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	err := toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return finalize(&cfg)
}

func finalize(cfg *Config) (*Config, error) {
	envErr := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix})
	if envErr != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", envErr)
	}

	cfg.ApplyDefaults()

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, validateErr
	}

	return cfg, nil
}

// ApplyDefaults fills every unset field with its default.
func (c *Config) ApplyDefaults() {
	setString(&c.Server.ListenAddr, defaultListenAddr)
	setInt64(&c.Server.MaxUploadMB, defaultMaxUploadMB)
	setInt(&c.Server.ReadTimeoutSeconds, defaultReadTimeoutSecs)

	setString(&c.Engine.Backend, EngineBackendHTTP)
	setString(&c.Engine.ServiceURL, defaultServiceURL)
	setString(&c.Engine.BinaryPath, defaultBinaryPath)
	setInt(&c.Engine.TimeoutSeconds, defaultEngineTimeoutSecs)
	setInt(&c.Engine.MaxConcurrent, defaultMaxConcurrent)

	setString(&c.Staging.VoicesDir, defaultVoicesDir)
	setInt(&c.Staging.MinSamples, defaultMinSamples)
	setInt(&c.Staging.MaxSamples, defaultMaxSamples)
	setFloat(&c.Staging.MinSampleSeconds, defaultMinSampleSeconds)
	setFloat(&c.Staging.MaxSampleSeconds, defaultMaxSampleSeconds)

	setString(&c.Storage.Backend, StorageBackendFile)
	setString(&c.Storage.ClipsDir, defaultClipsDir)
	setInt(&c.Storage.RetentionMinutes, defaultRetentionMinutes)

	setString(&c.NATS.URL, defaultNATSURL)
	setString(&c.NATS.CloneSubject, defaultCloneSubject)
	setString(&c.NATS.ClipBucket, defaultClipBucket)

	setString(&c.Paths.BaseLogsDir, defaultBaseLogsDir)
}

// Validate checks the configuration for inconsistent settings.
func (c *Config) Validate() error {
	switch c.Engine.Backend {
	case EngineBackendHTTP:
		if c.Engine.ServiceURL == "" {
			return ErrServiceURLEmpty
		}
	case EngineBackendCommand:
		if c.Engine.BinaryPath == "" {
			return ErrBinaryPathEmpty
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEngineBackend, c.Engine.Backend)
	}

	switch c.Storage.Backend {
	case StorageBackendFile:
	case StorageBackendNATS:
		if !c.NATS.Enabled {
			return ErrNATSRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorageBackend, c.Storage.Backend)
	}

	if c.Staging.MinSamples < minimumRequiredSampleSize || c.Staging.MaxSamples < c.Staging.MinSamples {
		return fmt.Errorf("%w: min=%d max=%d", ErrSampleBounds, c.Staging.MinSamples, c.Staging.MaxSamples)
	}

	return nil
}

// EngineTimeout returns the per-generation deadline.
func (c *Config) EngineTimeout() time.Duration {
	return time.Duration(c.Engine.TimeoutSeconds) * time.Second
}

// Retention returns how long generated clips are kept.
func (c *Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionMinutes) * time.Minute
}

// MaxUploadBytes returns the multipart upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}

func setString(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func setInt(field *int, value int) {
	if *field == 0 {
		*field = value
	}
}

func setInt64(field *int64, value int64) {
	if *field == 0 {
		*field = value
	}
}

func setFloat(field *float64, value float64) {
	if *field == 0 {
		*field = value
	}
}
