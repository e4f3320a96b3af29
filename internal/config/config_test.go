package config

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mediafix.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.Equal(t, ":3000", cfg.Server.Listen)
	require.Equal(t, int64(64<<20), cfg.Server.MaxUploadBytes)
	require.False(t, cfg.Server.Auth.Enabled())
	require.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
log:
  level: debug
  format: json
repair:
  fix_timestamps: true
  clamp_timestamp_jumps: true
server:
  listen: 127.0.0.1:8080
  auth:
    username: admin
    password_hash: $2a$10$abcdefghijklmnopqrstuv
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "json", cfg.Log.Format)
	require.True(t, cfg.Repair.FixTimestamps)
	require.True(t, cfg.Repair.ClampTimestampJumps)
	require.Equal(t, "127.0.0.1:8080", cfg.Server.Listen)
	require.True(t, cfg.Server.Auth.Enabled())

	// Keys the file leaves out keep their defaults.
	require.Equal(t, "records", cfg.Server.RecordsDir)
	require.Equal(t, int64(DefaultMaxUploadBytes), cfg.Server.MaxUploadBytes)

	opts := cfg.RepairOptions(logrus.New())
	require.True(t, opts.Debug)
	require.True(t, opts.FixTimestamps)
	require.True(t, opts.ClampTimestampJumps)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"level", "log:\n  level: loud\n", ErrInvalidLogLevel},
		{"format", "log:\n  format: xml\n", ErrInvalidLogFormat},
		{"limit", "server:\n  max_upload_bytes: 0\n", ErrInvalidLimit},
		{"password", "server:\n  auth:\n    username: admin\n", ErrMissingPassword},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadMalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "log: [unclosed\n"))
	require.Error(t, err)
}

func TestConfigureLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "warn"
	cfg.Log.Format = "json"

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	require.NoError(t, cfg.ConfigureLogger(logger))
	require.Equal(t, logrus.WarnLevel, logger.GetLevel())
	require.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
}
