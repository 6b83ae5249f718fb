package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file.
// If the file doesn't exist, returns default configuration. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadWithEnv loads configuration from a YAML file, applies environment overrides and validates it.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RELOADABLE_PATH"); v != "" {
		cfg.Path = v
	}
	if v := os.Getenv("RELOADABLE_KIND"); v != "" {
		cfg.Kind = Kind(strings.ToLower(strings.TrimSpace(v)))
	}
	if v := os.Getenv("RELOADABLE_FORMAT"); v != "" {
		cfg.Format = Format(strings.ToLower(strings.TrimSpace(v)))
	}
	if v := os.Getenv("RELOADABLE_RELOAD_EVERY"); v != "" {
		cfg.ReloadEvery = parseDuration(v, cfg.ReloadEvery)
	}
	if v := os.Getenv("RELOADABLE_MAX_SIZE"); v != "" {
		cfg.MaxSize = strings.TrimSpace(v)
	}
	if v := os.Getenv("RELOADABLE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if v := os.Getenv("DD_AGENT_HOST"); v != "" {
		cfg.DataDog.AgentHost = v
		cfg.DataDog.Enabled = true
	}
	if v := os.Getenv("DD_DOGSTATSD_PORT"); v != "" {
		cfg.DataDog.Port = parseInt(v, cfg.DataDog.Port)
	}
	if v := os.Getenv("DD_SERVICE"); v != "" {
		cfg.DataDog.Prefix = v
	}
	if v := os.Getenv("DD_ENV"); v != "" {
		cfg.DataDog.Tags = append(cfg.DataDog.Tags, "env:"+v)
	}
	if v := os.Getenv("RELOADABLE_DATADOG_ENABLED"); v != "" {
		if os.Getenv("DD_AGENT_HOST") == "" {
			cfg.DataDog.Enabled = parseBool(v)
		}
	}
}

func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

func parseInt(s string, defaultVal int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return defaultVal
	}
	return v
}

// parseDuration accepts a Go duration or a number of seconds.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultVal
}
