package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("NCF_STORAGE_DRIVER", "memory")
	t.Setenv("NCF_HTTP_PORT", "9090")
	t.Setenv("NCF_ALLOCATOR_MAX_ATTEMPTS", "6")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, ":9090", cfg.HTTP.Addr())
	assert.Equal(t, 6, cfg.Allocator.MaxAttempts)
	assert.Equal(t, 25*time.Millisecond, cfg.Allocator.BaseBackoff)
	assert.Equal(t, 3, cfg.Allocator.MaxSequenceHops)
	assert.Equal(t, 30, cfg.Monitor.AlertDays)
	assert.InDelta(t, 90.0, cfg.Monitor.LowAvailability, 1e-9)
	assert.True(t, cfg.App.Development())
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ncf.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
storage:
  driver: postgres
database:
  url: postgres://ncf@localhost/ncf
  lock_timeout: 500ms
monitor:
  interval: 10m
  low_availability: 80
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://ncf@localhost/ncf", cfg.Database.URL)
	assert.Equal(t, 500*time.Millisecond, cfg.Database.LockTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Monitor.Interval)
	assert.InDelta(t, 80.0, cfg.Monitor.LowAvailability, 1e-9)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Storage:   StorageConfig{Driver: DriverMemory},
			Allocator: AllocatorConfig{MaxAttempts: 4, MaxSequenceHops: 3},
			Monitor:   MonitorConfig{AlertDays: 30, LowAvailability: 90},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Storage.Driver = "sqlite" }},
		{"postgres without url", func(c *Config) { c.Storage.Driver = DriverPostgres }},
		{"zero attempts", func(c *Config) { c.Allocator.MaxAttempts = 0 }},
		{"zero hops", func(c *Config) { c.Allocator.MaxSequenceHops = 0 }},
		{"threshold above 100", func(c *Config) { c.Monitor.LowAvailability = 101 }},
		{"threshold zero", func(c *Config) { c.Monitor.LowAvailability = 0 }},
		{"negative alert days", func(c *Config) { c.Monitor.AlertDays = -1 }},
		{"archive without bucket", func(c *Config) { c.Archive.Enabled = true }},
	}

	base := valid()
	require.NoError(t, base.Validate())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NCF_TEST_DOTENV_VALUE=from-file\n"), 0o600))
	t.Setenv("NCF_TEST_DOTENV_VALUE", "")
	require.NoError(t, os.Unsetenv("NCF_TEST_DOTENV_VALUE"))

	LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "from-file", os.Getenv("NCF_TEST_DOTENV_VALUE"))
}
