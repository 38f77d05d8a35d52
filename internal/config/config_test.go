package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig_Defaults(t *testing.T) {
	cfg, err := ReadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "http://localhost:8000/api", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, 60*time.Second, cfg.Inactivity.Timeout)
	assert.Equal(t, 20*time.Second, cfg.Inactivity.Warning)
}

func TestReadConfig_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: prod
api:
  base_url: https://farmacia.example.org/api
storage:
  driver: redis
  namespace: ward-3
inactivity:
  timeout: 15m
  warning: 1m
`), 0o600))

	t.Setenv("STORAGE_DRIVER", "memory")

	cfg, err := ReadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Env)
	assert.Equal(t, "https://farmacia.example.org/api", cfg.API.BaseURL)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "ward-3", cfg.Storage.Namespace)
	assert.Equal(t, 15*time.Minute, cfg.Inactivity.Timeout)
}

func TestReadConfig_Invalid(t *testing.T) {
	t.Run("relative base url", func(t *testing.T) {
		t.Setenv("API_BASE_URL", "/api")
		_, err := ReadConfig("")
		require.Error(t, err)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORAGE_DRIVER", "cookie")
		_, err := ReadConfig("")
		require.ErrorContains(t, err, "storage driver")
	})

	t.Run("warning not shorter than timeout", func(t *testing.T) {
		t.Setenv("INACTIVITY_TIMEOUT", "10s")
		t.Setenv("INACTIVITY_WARNING", "10s")
		_, err := ReadConfig("")
		require.Error(t, err)
	})
}
