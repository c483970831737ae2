package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the agrictl configuration file.
type Config struct {
	PersistenceURL string        `yaml:"persistence_url"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	Timeout        time.Duration `yaml:"timeout"`
	Minutes        int           `yaml:"minutes"` // finestra per /data/latest
	JournalPath    string        `yaml:"journal_path"`

	Simulate struct {
		Records int    `yaml:"records"`
		Farms   int    `yaml:"farms"`
		Profile string `yaml:"profile"`
		Seed    int64  `yaml:"seed"`
	} `yaml:"simulate"`
}

func defaultConfig() Config {
	var c Config
	c.PersistenceURL = "http://localhost:8080"
	c.PollInterval = 10 * time.Second
	c.Timeout = 5 * time.Second
	c.Minutes = 60
	c.Simulate.Records = 100
	c.Simulate.Farms = 3
	c.Simulate.Profile = "batch"
	return c
}

// loadConfig reads path over the defaults. An empty path means defaults only.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.PollInterval <= 0:
		return errors.New("poll_interval must be positive")
	case c.Timeout <= 0:
		return errors.New("timeout must be positive")
	case c.Minutes <= 0:
		return errors.New("minutes must be positive")
	}
	return nil
}
