// Package config provides configuration management for vodforge using Viper.
// It supports configuration from files, environment variables, and defaults.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	defaultServerPort           = 8080
	defaultServerTimeout        = 30 * time.Second
	defaultShutdownTimeout      = 10 * time.Second
	defaultMaxOpenConns         = 25
	defaultMaxIdleConns         = 10
	defaultConnMaxIdleTime      = 30 * time.Minute
	defaultMaxUploadSizeBytes   = 2 * 1024 * 1024 * 1024 // 2GB
	defaultMaxChunkSizeBytes    = 8 * 1024 * 1024        // 8MB
	defaultMaxConcurrentEncodes = 2
	defaultMaxConcurrentUploads = 30
	defaultProbeTimeout         = 30 * time.Second
	defaultTranscodeTimeout     = 2 * time.Hour
	defaultPresenceWindow       = 45 * time.Second
	defaultProgressRetention    = 10 * time.Second
	defaultRandomSecretBytes    = 32
)

// Config holds all configuration for the application.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	ObjectStore ObjectStoreConfig `mapstructure:"object_store"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Transcode  TranscodeConfig  `mapstructure:"transcode"`
	Analytics  AnalyticsConfig  `mapstructure:"analytics"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // sqlite, postgres, mysql
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	LogLevel        string        `mapstructure:"log_level"` // silent, error, warn, info
}

// StorageConfig holds local filesystem configuration for chunked uploads
// and transcode scratch space. Object storage is the permanent home for
// finished artifacts; everything under these directories is transient.
type StorageConfig struct {
	BaseDir   string `mapstructure:"base_dir"`
	ScratchDir string `mapstructure:"scratch_dir"` // holds in-progress chunk reassembly, relative to BaseDir
	OutputDir string `mapstructure:"output_dir"`   // holds finished HLS output prior to upload, relative to BaseDir
	// MaxUploadSize is the maximum total size accepted for a single upload.
	MaxUploadSize ByteSize `mapstructure:"max_upload_size"`
	// MaxChunkSize is the maximum size accepted for a single chunk.
	MaxChunkSize ByteSize `mapstructure:"max_chunk_size"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`  // debug, info, warn, error
	Format     string `mapstructure:"format"` // json, text
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// ObjectStoreConfig holds S3-compatible object storage configuration.
// Endpoint, bucket and credentials are required: a deployment with no
// durable place to put finished renditions cannot serve playback, so
// startup fails fast rather than accepting uploads it cannot finish.
type ObjectStoreConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	UseSSL        bool   `mapstructure:"use_ssl"`
	UsePathStyle  bool   `mapstructure:"use_path_style"`
	PublicBaseURL string `mapstructure:"public_base_url"` // used when building absolute asset URLs, optional
}

// AuthConfig holds playback-token signing and admin-login configuration.
// HMACSecret and AdminPassword are both allowed to be empty in config; if
// so, Load generates a random value and logs it at Warn so it is never
// silently missed, then continues (generated secrets do not survive a
// restart, which invalidates outstanding tokens — acceptable for a
// single-process deployment, fatal for a clustered one, so operators are
// expected to set this explicitly once they run more than one instance).
type AuthConfig struct {
	HMACSecret    string        `mapstructure:"hmac_secret"`
	AdminPassword string        `mapstructure:"admin_password"`
	TokenTTL      time.Duration `mapstructure:"token_ttl"`
}

// TranscodeConfig holds FFmpeg/FFprobe invocation and concurrency settings.
type TranscodeConfig struct {
	BinaryPath          string        `mapstructure:"binary_path"`           // path to ffmpeg binary (empty = auto-detect)
	ProbePath           string        `mapstructure:"probe_path"`            // path to ffprobe binary (empty = auto-detect)
	UseEmbedded         bool          `mapstructure:"use_embedded"`          // use embedded binary if available
	Encoder             string        `mapstructure:"encoder"`              // e.g. "libx264", "h264_nvenc", "h264_vaapi", "h264_qsv"
	MaxConcurrentEncodes int          `mapstructure:"max_concurrent_encodes"`
	MaxConcurrentUploads int          `mapstructure:"max_concurrent_uploads"`
	ProbeTimeout        time.Duration `mapstructure:"probe_timeout"`
	TranscodeTimeout    time.Duration `mapstructure:"transcode_timeout"`
}

// AnalyticsConfig holds optional analytics warehouse configuration.
// WarehouseDSN is not read by serve, which wires no warehouse, so the
// history/detail endpoints respond 501 Not Implemented whatever its value;
// realtime presence tracking (purely in-memory) works without it.
type AnalyticsConfig struct {
	WarehouseDSN    string        `mapstructure:"warehouse_dsn"`
	PresenceWindow  time.Duration `mapstructure:"presence_window"`
}

// Load reads configuration from file and environment variables.
// Environment variables take precedence over file configuration.
// Environment variables are prefixed with VODFORGE_ and use underscores
// for nesting. Example: VODFORGE_SERVER_PORT=8080.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/vodforge")
		v.AddConfigPath("$HOME/.vodforge")
	}

	v.SetEnvPrefix("VODFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.applyGeneratedSecrets()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// applyGeneratedSecrets fills in AuthConfig fields left empty by the
// operator with random values, logging at Warn so the gap is visible in
// any log aggregation, per the package doc on AuthConfig.
func (c *Config) applyGeneratedSecrets() {
	if c.Auth.HMACSecret == "" {
		c.Auth.HMACSecret = randomSecret()
		slog.Warn("auth.hmac_secret not configured, generated a random value for this process; playback tokens will not survive a restart or be valid across multiple instances")
	}
	if c.Auth.AdminPassword == "" {
		c.Auth.AdminPassword = randomSecret()
		slog.Warn("auth.admin_password not configured, generated a random value for this process", "admin_password", c.Auth.AdminPassword)
	}
}

func randomSecret() string {
	buf := make([]byte, defaultRandomSecretBytes)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand.Read on a supported platform does not fail; if it
		// somehow does, fall back to a fixed-length hex of the error text
		// rather than panicking during startup.
		return hex.EncodeToString([]byte(err.Error()))
	}
	return hex.EncodeToString(buf)
}

// SetDefaults configures default values for all configuration options.
// This should be called before reading the config file to ensure defaults
// are in place.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", defaultServerPort)
	v.SetDefault("server.read_timeout", defaultServerTimeout)
	v.SetDefault("server.write_timeout", defaultServerTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdownTimeout)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "vodforge.db")
	v.SetDefault("database.max_open_conns", defaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", defaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", defaultConnMaxIdleTime)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("storage.base_dir", "./data")
	v.SetDefault("storage.scratch_dir", "scratch")
	v.SetDefault("storage.output_dir", "output")
	v.SetDefault("storage.max_upload_size", defaultMaxUploadSizeBytes)
	v.SetDefault("storage.max_chunk_size", defaultMaxChunkSizeBytes)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("object_store.region", "us-east-1")
	v.SetDefault("object_store.use_ssl", true)
	v.SetDefault("object_store.use_path_style", false)

	v.SetDefault("auth.token_ttl", time.Hour)

	v.SetDefault("transcode.binary_path", "")
	v.SetDefault("transcode.probe_path", "")
	v.SetDefault("transcode.use_embedded", false)
	v.SetDefault("transcode.encoder", "libx264")
	v.SetDefault("transcode.max_concurrent_encodes", defaultMaxConcurrentEncodes)
	v.SetDefault("transcode.max_concurrent_uploads", defaultMaxConcurrentUploads)
	v.SetDefault("transcode.probe_timeout", defaultProbeTimeout)
	v.SetDefault("transcode.transcode_timeout", defaultTranscodeTimeout)

	v.SetDefault("analytics.warehouse_dsn", "")
	v.SetDefault("analytics.presence_window", defaultPresenceWindow)
}

// Validate checks the configuration for errors. Object store reachability
// is not checked here (Load has no network access); the caller is expected
// to fail startup if the object store client cannot be constructed from
// these fields.
func (c *Config) Validate() error {
	const maxPort = 65535
	if c.Server.Port < 1 || c.Server.Port > maxPort {
		return fmt.Errorf("server.port must be between 1 and %d", maxPort)
	}

	validDrivers := map[string]bool{"sqlite": true, "postgres": true, "mysql": true}
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of: sqlite, postgres, mysql")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}

	if c.Storage.BaseDir == "" {
		return fmt.Errorf("storage.base_dir is required")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	if c.ObjectStore.Endpoint == "" {
		return fmt.Errorf("object_store.endpoint is required")
	}
	if c.ObjectStore.Bucket == "" {
		return fmt.Errorf("object_store.bucket is required")
	}
	if c.ObjectStore.AccessKey == "" || c.ObjectStore.SecretKey == "" {
		return fmt.Errorf("object_store.access_key and object_store.secret_key are required")
	}

	if c.Transcode.MaxConcurrentEncodes < 1 {
		return fmt.Errorf("transcode.max_concurrent_encodes must be at least 1")
	}
	if c.Transcode.MaxConcurrentUploads < 1 {
		return fmt.Errorf("transcode.max_concurrent_uploads must be at least 1")
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ScratchPath returns the full path to the scratch directory.
func (c *StorageConfig) ScratchPath() string {
	return fmt.Sprintf("%s/%s", c.BaseDir, c.ScratchDir)
}

// OutputPath returns the full path to the output directory.
func (c *StorageConfig) OutputPath() string {
	return fmt.Sprintf("%s/%s", c.BaseDir, c.OutputDir)
}
