package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults_SetsExpectedValues(t *testing.T) {
	t.Parallel()

	cfg := Defaults()

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 1000, cfg.Places.Radius)
	assert.Equal(t, 64, cfg.Notify.QueueSize)
	assert.Equal(t, 16, cfg.Notify.SubscriberBuffer)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Cache.TTL)
}

func TestLoadFromFile_ParsesYAML(t *testing.T) {
	t.Parallel()

	content := `
server:
  host: "127.0.0.1"
  port: 9000
  log_level: "debug"

database:
  path: "/tmp/taskhive-test.db"

places:
  base_url: "https://places.test.local"
  api_key: "abc123"
  radius: 500

cache:
  enabled: true
  addr: "127.0.0.1:6390"
  ttl: 5m

notify:
  queue_size: 128
  subscriber_buffer: 32
`

	tmpFile := filepath.Join(t.TempDir(), "taskhive.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg, err := LoadFromFile(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "/tmp/taskhive-test.db", cfg.Database.Path)
	assert.Equal(t, "https://places.test.local", cfg.Places.BaseURL)
	assert.Equal(t, "abc123", cfg.Places.APIKey)
	assert.Equal(t, 500, cfg.Places.Radius)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "127.0.0.1:6390", cfg.Cache.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 128, cfg.Notify.QueueSize)
	assert.Equal(t, 32, cfg.Notify.SubscriberBuffer)
}

func TestLoadFromFile_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TASKHIVE_TEST_KEY", "super-secret-value")

	content := `
places:
  api_key: "${TASKHIVE_TEST_KEY}"
`
	tmpFile := filepath.Join(t.TempDir(), "taskhive.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg, err := LoadFromFile(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "super-secret-value", cfg.Places.APIKey)
}

func TestLoadFromFile_EnvOverridesFile(t *testing.T) {
	t.Setenv("TASKHIVE_PLACES_API_KEY", "from-env")

	content := `
places:
  api_key: "from-file"
`
	tmpFile := filepath.Join(t.TempDir(), "taskhive.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	cfg, err := LoadFromFile(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Places.APIKey)
}

func TestLoadFromFile_RejectsInvalidPort(t *testing.T) {
	t.Parallel()

	content := `
server:
  port: 99999
`
	tmpFile := filepath.Join(t.TempDir(), "taskhive.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	_, err := LoadFromFile(tmpFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestLoadFromFile_RejectsZeroQueueSize(t *testing.T) {
	t.Parallel()

	content := `
notify:
  queue_size: 0
`
	tmpFile := filepath.Join(t.TempDir(), "taskhive.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	_, err := LoadFromFile(tmpFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notify.queue_size")
}

func TestLoadFromFile_RequiresCacheAddrWhenEnabled(t *testing.T) {
	t.Parallel()

	content := `
cache:
  enabled: true
  addr: ""
`
	tmpFile := filepath.Join(t.TempDir(), "taskhive.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0644))

	_, err := LoadFromFile(tmpFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.addr")
}

func TestLoadFromFile_MissingFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestExpandHome(t *testing.T) {
	t.Parallel()

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x.db"), ExpandHome("~/x.db"))
	assert.Equal(t, "/abs/path.db", ExpandHome("/abs/path.db"))
}
