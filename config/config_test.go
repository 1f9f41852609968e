package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithEnvSecret(t *testing.T) {
	t.Setenv("SEEKRAS_JWT_SECRET", "env-secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "5000", cfg.Port)
	assert.Equal(t, "./seekras.db", cfg.DBPath)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Setenv("SEEKRAS_JWT_SECRET", "")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"port: \"8080\"\njwt_secret: file-secret\nlog_level: debug\nallowed_origins:\n  - https://seekras.dev\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "file-secret", cfg.JWTSecret)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"https://seekras.dev"}, cfg.AllowedOrigins)
}
