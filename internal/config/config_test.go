package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5000/api", cfg.API.BaseURL)
	timeout, err := cfg.API.GetTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 80, cfg.UI.WordWrap)
	assert.True(t, cfg.Output.Colors)
	assert.Equal(t, "session.db", filepath.Base(cfg.Session.Path))
}

func TestLoad_FileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://conduit.example.com/api
  timeout: 5s
  rate_limit: 2.5
log:
  level: debug
output:
  colors: false
`), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://conduit.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, "5s", cfg.API.Timeout)
	assert.Equal(t, 2.5, cfg.API.RateLimit)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Output.Colors)
	assert.Equal(t, 80, cfg.UI.WordWrap, "unset keys keep defaults")
}

func TestLoad_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  path: ~/conduit/session.db\n"), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "conduit", "session.db"), cfg.Session.Path)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: https://file.example.com/api\n"), 0o644))
	t.Setenv("CONDUIT_API_BASE_URL", "https://env.example.com/api")
	t.Setenv("CONDUIT_UI_WORD_WRAP", "120")

	cfg, err := Load(path, NewViper())
	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com/api", cfg.API.BaseURL)
	assert.Equal(t, 120, cfg.UI.WordWrap)
}

func TestLoad_BoundFlagOverridesOnlyWhenChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: info\n"), 0o644))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("api-url", "", "")
	flags.String("log-level", "error", "")

	v := NewViper()
	require.NoError(t, v.BindPFlag("api.base_url", flags.Lookup("api-url")))
	require.NoError(t, v.BindPFlag("log.level", flags.Lookup("log-level")))
	require.NoError(t, flags.Parse([]string{"--api-url", "http://127.0.0.1:9000/api"}))

	cfg, err := Load(path, v)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/api", cfg.API.BaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":      "api: [",
		"bad timeout":   "api:\n  timeout: soon\n",
		"negative rate": "api:\n  rate_limit: -1\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := Load(path, nil)
			assert.Error(t, err)
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.API.BaseURL = "https://saved.example.com/api"
	cfg.Session.Path = filepath.Join(t.TempDir(), "s.db")

	require.NoError(t, Save(cfg, path))
	loaded, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
