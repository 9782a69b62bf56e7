package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultStaticAddr   = "127.0.0.1:8765"
	defaultStreamAddr   = "127.0.0.1:8766"
	defaultInterval     = 2 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultLogLevel     = "info"
)

type Config struct {
	StaticAddr   string        `yaml:"static_addr"`
	StreamAddr   string        `yaml:"stream_addr"`
	Interval     time.Duration `yaml:"interval"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	LogLevel     string        `yaml:"log_level"`
}

func defaultConfig() *Config {
	return &Config{
		StaticAddr:   defaultStaticAddr,
		StreamAddr:   defaultStreamAddr,
		Interval:     defaultInterval,
		WriteTimeout: defaultWriteTimeout,
		LogLevel:     defaultLogLevel,
	}
}

func defaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".hostwatch", "agent.yaml")
}

// loadConfig reads path if it exists. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Interval < 0 {
		return nil, fmt.Errorf("invalid interval %s: must be positive", cfg.Interval)
	}

	if cfg.StaticAddr == "" {
		cfg.StaticAddr = defaultStaticAddr
	}
	if cfg.StreamAddr == "" {
		cfg.StreamAddr = defaultStreamAddr
	}
	if cfg.Interval == 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}

	return cfg, nil
}
