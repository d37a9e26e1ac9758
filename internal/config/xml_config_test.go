package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_CreatesDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config is written on first run")

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, "data", "uploads"), cfg.Storage.UploadsDirectory)
	assert.Equal(t, filepath.Join(dir, "data", "studypulse.duckdb"), cfg.Storage.DatabasePath)
	assert.Equal(t, int64(20*1024*1024), cfg.DocumentLimit())
	assert.Equal(t, int64(10*1024*1024), cfg.HealthLimit())
	assert.Equal(t, int64(5*1024*1024), cfg.ActivityLimit())
}

func TestLoadConfig_FileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.xml")
	content := `<?xml version="1.0" encoding="UTF-8"?>
<StudyPulse>
  <Server><Port>9100</Port><BindAddress>127.0.0.1</BindAddress></Server>
  <Storage><DataDirectory>/srv/data</DataDirectory></Storage>
  <Limits><MaxDocumentSize>1MiB</MaxDocumentSize><MaxHealthImportSize>2MB</MaxHealthImportSize><AllowedExtensions>.PDF, txt ,</AllowedExtensions></Limits>
  <Parsing><RulesFile>rules.yaml</RulesFile></Parsing>
  <Advanced><LogLevel>debug</LogLevel></Advanced>
</StudyPulse>`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9100", cfg.GetServerAddr())
	assert.Equal(t, "/srv/data", cfg.Storage.DataDirectory)
	assert.Equal(t, int64(1024*1024), cfg.DocumentLimit())
	assert.Equal(t, int64(2_000_000), cfg.HealthLimit(), "MB is decimal")
	assert.Equal(t, int64(5*1024*1024), cfg.ActivityLimit(), "missing elements keep defaults")
	assert.Equal(t, []string{"pdf", "txt"}, cfg.AllowedExtensions())
	assert.Equal(t, filepath.Join(dir, "rules.yaml"), cfg.Parsing.RulesFile)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("DATA_DIR", "/tmp/override")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.xml"))
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "/tmp/override", cfg.Storage.DataDirectory)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.xml")
	require.NoError(t, os.WriteFile(bad, []byte("<StudyPulse><Server>"), 0644))
	_, err := LoadConfig(bad)
	assert.Error(t, err)

	size := filepath.Join(dir, "size.xml")
	require.NoError(t, os.WriteFile(size, []byte("<StudyPulse><Limits><MaxDocumentSize>lots</MaxDocumentSize></Limits></StudyPulse>"), 0644))
	_, err = LoadConfig(size)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxDocumentSize")
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.resolvePaths(dir)

	require.NoError(t, cfg.EnsureDirectories())
	for _, d := range []string{cfg.Storage.DataDirectory, cfg.Storage.UploadsDirectory} {
		info, err := os.Stat(d)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
