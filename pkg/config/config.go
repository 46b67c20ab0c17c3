package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Channels   ChannelsConfig   `json:"channels"`
	Transcoder TranscoderConfig `json:"transcoder,omitempty"`
	Gateway    GatewayConfig    `json:"gateway"`
	Logging    LoggingConfig    `json:"logging,omitempty"`
}

// ChannelsConfig stores transport adapter settings.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

// TelegramConfig configures Telegram channel integration.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	AllowFrom []string `json:"allow_from"`
}

// TranscoderConfig configures the external ffmpeg transcoder invocation.
type TranscoderConfig struct {
	FFmpegPath     string `json:"ffmpeg_path,omitempty"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
	TempDir        string `json:"temp_dir,omitempty"`
	MaxConcurrent  int    `json:"max_concurrent,omitempty"`
}

// GatewayConfig configures the health/logs sidecar bind settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// envOverrides are environment-driven settings layered on top of file config.
type envOverrides struct {
	TelegramToken     string   `env:"TELEGRAM_BOT_TOKEN"`
	TelegramAllowFrom []string `env:"TELEGRAM_ALLOW_FROM"`
	GatewayPort       int      `env:"PORT"`
}

// LoadConfig resolves config.json, unmarshals it, and applies environment overrides.
func LoadConfig() (*Config, error) {
	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse environment overrides: %w", err)
	}

	if overrides.TelegramToken != "" {
		cfg.Channels.Telegram.Token = overrides.TelegramToken
	}
	if len(overrides.TelegramAllowFrom) > 0 {
		cfg.Channels.Telegram.AllowFrom = overrides.TelegramAllowFrom
	}
	if overrides.GatewayPort > 0 {
		cfg.Gateway.Port = overrides.GatewayPort
	}

	return nil
}

// findConfigPath resolves the active config file location.
//
// Precedence is VOICEMORPH_CONFIG first, then cwd-local fallback paths.
func findConfigPath() (string, error) {
	if value := os.Getenv("VOICEMORPH_CONFIG"); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("VOICEMORPH_CONFIG does not point to a file: %s", value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("config.json not found (checked %s and %s)", candidates[0], candidates[1])
}
