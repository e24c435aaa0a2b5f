// Package config loads service configuration from defaults, an optional YAML
// file, and environment overrides, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "24h" (or plain seconds)
// decode cleanly.
type Duration time.Duration

// UnmarshalYAML accepts either a duration string or an integer second count.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err == nil {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var seconds int64
	if err := value.Decode(&seconds); err != nil {
		return fmt.Errorf("invalid duration value")
	}
	*d = Duration(time.Duration(seconds) * time.Second)
	return nil
}

// MarshalYAML renders the duration in time.Duration string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full service configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Cache        CacheConfig        `yaml:"cache"`
	Staging      StagingConfig      `yaml:"staging"`
	Capabilities CapabilitiesConfig `yaml:"capabilities"`
	Log          LogConfig          `yaml:"log"`
}

// ServerConfig controls the HTTP surface.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	EnableCORS     bool          `yaml:"enable_cors"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	ReadTimeout    Duration      `yaml:"read_timeout"`
	WriteTimeout   Duration      `yaml:"write_timeout"`
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	Dir string        `yaml:"dir"`
	TTL Duration `yaml:"ttl"`
}

// StagingConfig controls temp staging.
type StagingConfig struct {
	Dir string `yaml:"dir"`
}

// CapabilitiesConfig selects the analysis backend provider.
type CapabilitiesConfig struct {
	// Provider is "mock" or "openai".
	Provider string       `yaml:"provider"`
	OpenAI   OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig configures the OpenAI-compatible backend adapter.
type OpenAIConfig struct {
	BaseURL            string        `yaml:"base_url"`
	APIKey             string        `yaml:"api_key"`
	VisionModel        string        `yaml:"vision_model"`
	ChatModel          string        `yaml:"chat_model"`
	TranscriptionModel string        `yaml:"transcription_model"`
	Timeout            Duration      `yaml:"timeout"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file or overrides are
// present. Directories land under the user's home so restarts see the same
// cache.
func Default() *Config {
	dataDir := defaultDataDir()
	return &Config{
		Server: ServerConfig{
			Host:         "localhost",
			Port:         8721,
			EnableCORS:   true,
			ReadTimeout:  Duration(30 * time.Second),
			WriteTimeout: Duration(60 * time.Second),
		},
		Cache: CacheConfig{
			Dir: filepath.Join(dataDir, "media-cache"),
			TTL: Duration(24 * time.Hour),
		},
		Staging: StagingConfig{
			Dir: filepath.Join(os.TempDir(), "mira-staging"),
		},
		Capabilities: CapabilitiesConfig{
			Provider: "mock",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, then the YAML file at path if
// non-empty, then MIRA_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Server.Host, "MIRA_HOST")
	setInt(&c.Server.Port, "MIRA_PORT")
	setString(&c.Cache.Dir, "MIRA_CACHE_DIR")
	setDuration(&c.Cache.TTL, "MIRA_CACHE_TTL")
	setString(&c.Staging.Dir, "MIRA_STAGING_DIR")
	setString(&c.Capabilities.Provider, "MIRA_CAPABILITY_PROVIDER")
	setString(&c.Capabilities.OpenAI.BaseURL, "MIRA_OPENAI_BASE_URL")
	setString(&c.Capabilities.OpenAI.APIKey, "MIRA_OPENAI_API_KEY")
	if c.Capabilities.OpenAI.APIKey == "" {
		setString(&c.Capabilities.OpenAI.APIKey, "OPENAI_API_KEY")
	}
	setString(&c.Log.Level, "MIRA_LOG_LEVEL")
	setString(&c.Log.Format, "MIRA_LOG_FORMAT")
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Capabilities.Provider {
	case "mock", "openai":
	default:
		return fmt.Errorf("unknown capability provider: %q", c.Capabilities.Provider)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl must not be negative")
	}
	return nil
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
		return filepath.Join(home, ".mira")
	}
	return filepath.Join(os.TempDir(), "mira")
}

func setString(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

func setInt(dst *int, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*dst = parsed
		}
	}
}

func setDuration(dst *Duration, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			*dst = Duration(parsed)
		}
	}
}
