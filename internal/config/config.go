// Package config loads the mediafix configuration file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/autobrr/go-mediafix/internal/media"
)

const DefaultMaxUploadBytes = 64 << 20 // 64 MiB

// Config is the whole configuration file.
type Config struct {
	Log    LogConfig    `yaml:"log"`
	Repair RepairConfig `yaml:"repair"`
	Server ServerConfig `yaml:"server"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type RepairConfig struct {
	FixTimestamps       bool `yaml:"fix_timestamps"`
	ClampTimestampJumps bool `yaml:"clamp_timestamp_jumps"`
}

type ServerConfig struct {
	Listen         string     `yaml:"listen"`
	RecordsDir     string     `yaml:"records_dir"`
	DBPath         string     `yaml:"db_path"`
	MaxUploadBytes int64      `yaml:"max_upload_bytes"`
	Auth           AuthConfig `yaml:"auth"`
}

// AuthConfig enables basic auth when Username is set. PasswordHash is a
// bcrypt hash.
type AuthConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"`
}

// Enabled reports whether requests must authenticate.
func (a AuthConfig) Enabled() bool {
	return a.Username != ""
}

var (
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidLogFormat = errors.New("invalid log format")
	ErrInvalidLimit     = errors.New("max_upload_bytes must be positive")
	ErrMissingPassword  = errors.New("auth username set without password_hash")
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Listen:         ":3000",
			RecordsDir:     "records",
			DBPath:         "records/index.db",
			MaxUploadBytes: DefaultMaxUploadBytes,
		},
	}
}

// Load reads the file at path over the defaults. An empty path returns the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that yaml decoding cannot.
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return ErrInvalidLimit
	}
	if c.Server.Auth.Enabled() && c.Server.Auth.PasswordHash == "" {
		return ErrMissingPassword
	}
	return nil
}

// ConfigureLogger applies the log section to logger.
func (c *Config) ConfigureLogger(logger *logrus.Logger) error {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Log.Level)
	}
	logger.SetLevel(level)

	switch c.Log.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Log.Format)
	}
	return nil
}

// RepairOptions returns the repair options of the file for logger.
func (c *Config) RepairOptions(logger logrus.FieldLogger) media.Options {
	return media.Options{
		Debug:               c.Log.Level == "debug" || c.Log.Level == "trace",
		FixTimestamps:       c.Repair.FixTimestamps,
		ClampTimestampJumps: c.Repair.ClampTimestampJumps,
		Logger:              logger,
	}
}
