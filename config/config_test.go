package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "stockpilot", cfg.System.Appid)
	assert.Equal(t, 1816, cfg.Web.Port)
}

func TestLoadConfigMissingFileFallsBack(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)
	assert.Equal(t, "stockpilot", cfg.System.Appid)
}

func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := `
system:
  workdir: /tmp/sp
web:
  port: 9000
sync:
  endpoint: http://peer:1816/api/sync/apply
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Web.Port)
	assert.Equal(t, "/tmp/sp", cfg.System.Workdir)
	assert.Equal(t, "http://peer:1816/api/sync/apply", cfg.Sync.Endpoint)
	assert.Equal(t, filepath.Join("/tmp/sp", "data", "images.db"), cfg.BlobStorePath())
}

func TestLoadConfigBadYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("system: ["), 0o600))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
