package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	API     APIConfig     `yaml:"api"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
	UI      UIConfig      `yaml:"ui"`
	Output  OutputConfig  `yaml:"output"`
}

type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
	// RateLimit caps requests per second; zero disables limiting.
	RateLimit float64 `yaml:"rate_limit"`
}

type SessionConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type UIConfig struct {
	WordWrap int `yaml:"word_wrap"`
}

type OutputConfig struct {
	Colors bool `yaml:"colors"`
}

// GetTimeout parses the request timeout string
func (a *APIConfig) GetTimeout() (time.Duration, error) {
	return time.ParseDuration(a.Timeout)
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{Output: OutputConfig{Colors: true}}
	applyDefaults(cfg)
	return cfg
}

// Load reads configuration from file, then applies overrides from v (environment
// variables and bound flags). A missing file yields the defaults. v may be nil.
func Load(path string, v *viper.Viper) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if v != nil {
		applyOverrides(cfg, v)
	}

	// Set defaults for anything the file left empty
	applyDefaults(cfg)

	cfg.Session.Path = expandPath(cfg.Session.Path)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// NewViper returns a viper instance reading CONDUIT_* environment variables, e.g.
// CONDUIT_API_BASE_URL for api.base_url. Callers bind flags onto it.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("CONDUIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func applyOverrides(cfg *Config, v *viper.Viper) {
	if v.IsSet("api.base_url") {
		cfg.API.BaseURL = v.GetString("api.base_url")
	}
	if v.IsSet("api.timeout") {
		cfg.API.Timeout = v.GetString("api.timeout")
	}
	if v.IsSet("api.rate_limit") {
		cfg.API.RateLimit = v.GetFloat64("api.rate_limit")
	}
	if v.IsSet("session.path") {
		cfg.Session.Path = v.GetString("session.path")
	}
	if v.IsSet("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("ui.word_wrap") {
		cfg.UI.WordWrap = v.GetInt("ui.word_wrap")
	}
	if v.IsSet("output.colors") {
		cfg.Output.Colors = v.GetBool("output.colors")
	}
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:5000/api"
	}
	if cfg.API.Timeout == "" {
		cfg.API.Timeout = "30s"
	}
	if cfg.Session.Path == "" {
		cfg.Session.Path = filepath.Join(configDir(), "session.db")
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "warn"
	}
	if cfg.UI.WordWrap == 0 {
		cfg.UI.WordWrap = 80
	}
}

func validate(cfg *Config) error {
	if _, err := cfg.API.GetTimeout(); err != nil {
		return fmt.Errorf("api.timeout: %w", err)
	}
	if cfg.API.RateLimit < 0 {
		return fmt.Errorf("api.rate_limit must not be negative")
	}
	if cfg.UI.WordWrap < 0 {
		return fmt.Errorf("ui.word_wrap must not be negative")
	}
	return nil
}

// Save writes configuration to file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "conduit")
}

// DefaultConfigPath returns the default configuration file path
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}
