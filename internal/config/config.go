package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
	Engine struct {
		StateFile    string `yaml:"state_file"`
		AllowOverrun bool   `yaml:"allow_overrun"`
	} `yaml:"engine"`
	Catalog struct {
		File string `yaml:"file"`
	} `yaml:"catalog"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		WeeklyCron string `yaml:"weekly_cron"`
		AutoTick   bool   `yaml:"auto_tick"`
	} `yaml:"schedule"`
	Notify struct {
		WebhookURL string `yaml:"webhook_url"`
	} `yaml:"notify"`
	Prices map[string]float64 `yaml:"prices"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("STATE_FILE"); v != "" {
		cfg.Engine.StateFile = v
	}
	if v := os.Getenv("ALLOW_OVERRUN"); v != "" {
		cfg.Engine.AllowOverrun = v == "true"
	}
	if v := os.Getenv("CATALOG_FILE"); v != "" {
		cfg.Catalog.File = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("CRON_WEEKLY"); v != "" {
		cfg.Schedule.WeeklyCron = v
	}
	if v := os.Getenv("AUTO_TICK"); v != "" {
		cfg.Schedule.AutoTick = v == "true"
	}
	if v := os.Getenv("WEBHOOK_URL"); v != "" {
		cfg.Notify.WebhookURL = v
	}

	// Defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5000
	}
	if cfg.Engine.StateFile == "" {
		cfg.Engine.StateFile = "data/agent_state.json"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/savvy_history.db"
	}
	if cfg.Schedule.WeeklyCron == "" {
		cfg.Schedule.WeeklyCron = "0 0 9 * * 1"
	}

	return cfg, nil
}

// Validate checks that all required fields are usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535")
	}
	if c.Engine.StateFile == "" {
		return fmt.Errorf("engine.state_file is required")
	}
	for sym, p := range c.Prices {
		if p <= 0 {
			return fmt.Errorf("prices.%s must be positive", sym)
		}
	}
	return nil
}
