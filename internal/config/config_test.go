package config_test

import (
	"os"
	"path/filepath"
	"taskflow/internal/config"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, ":8080", cfg.GetServerAddr())
	assert.Equal(t, 30*time.Second, cfg.Server.Timeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, config.RepositoryInMemory, cfg.Repository.Type)
	assert.Equal(t, 30*24*time.Hour, cfg.Trash.Retention)
	assert.Equal(t, 100, cfg.Trash.BatchSize)
	assert.Equal(t, 25*time.Minute, cfg.FocusLength())
	assert.False(t, cfg.Degraded())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
  host: 127.0.0.1
  timeout: 5s
repository:
  type: postgres
backend:
  url: postgres://app:pass@db:5432/tasks
app:
  timezone: Europe/Moscow
  focus_minutes: 50
trash:
  retention: 0s
`)
	t.Setenv("TASKFLOW_BACKEND_API_KEY", "key-from-env")
	t.Setenv("TASKFLOW_SERVER_RATE_LIMIT", "7")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.GetServerAddr())
	assert.Equal(t, 5*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 7, cfg.Server.RateLimit)
	assert.Equal(t, "key-from-env", cfg.Backend.APIKey)
	assert.Equal(t, 50*time.Minute, cfg.FocusLength())
	assert.Zero(t, cfg.Trash.Retention)
	assert.False(t, cfg.Degraded())

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Moscow", loc.String())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "unknown repository", body: "repository:\n  type: mongo\n"},
		{name: "unknown timezone", body: "app:\n  timezone: Mars/Olympus\n"},
		{name: "negative retention", body: "trash:\n  retention: -1h\n"},
		{name: "broken yaml", body: "server: [port\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestConfig_Degraded(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.Config
		degraded bool
	}{
		{name: "inmemory", cfg: config.Config{Repository: config.RepositoryConfig{Type: config.RepositoryInMemory}}},
		{
			name: "postgres complete",
			cfg: config.Config{
				Repository: config.RepositoryConfig{Type: config.RepositoryPostgres},
				Backend:    config.BackendConfig{URL: "postgres://db", APIKey: "key"},
			},
		},
		{
			name: "postgres without key",
			cfg: config.Config{
				Repository: config.RepositoryConfig{Type: config.RepositoryPostgres},
				Backend:    config.BackendConfig{URL: "postgres://db", APIKey: "  "},
			},
			degraded: true,
		},
		{
			name:     "postgres without url",
			cfg:      config.Config{Repository: config.RepositoryConfig{Type: config.RepositoryPostgres}, Backend: config.BackendConfig{APIKey: "key"}},
			degraded: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.degraded, tt.cfg.Degraded())
		})
	}
}

func TestConfig_DumpMasksSecrets(t *testing.T) {
	cfg := config.Config{
		Backend: config.BackendConfig{URL: "postgres://app:pass@db:5432/tasks", APIKey: "very-secret"},
		Auth:    config.AuthConfig{Secret: "jwt-secret"},
	}

	raw, err := cfg.Dump()
	require.NoError(t, err)
	out := string(raw)

	assert.NotContains(t, out, "very-secret")
	assert.NotContains(t, out, "jwt-secret")
	assert.NotContains(t, out, "pass@")
	assert.Contains(t, out, "postgres://***@db:5432/tasks")
	assert.Equal(t, "very-secret", cfg.Backend.APIKey, "Dump не меняет исходный конфиг")

	empty := config.Config{}
	raw, err = empty.Dump()
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "***")
}
