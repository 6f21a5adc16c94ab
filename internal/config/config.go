// Package config loads the engine configuration from a YAML file with
// environment-variable overrides for deployment settings.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/R3E-Network/valuation_engine/internal/app/domain/valuation"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DatabaseConfig controls the PostgreSQL connection. An empty DSN selects the
// in-memory store.
type DatabaseConfig struct {
	Driver          string `yaml:"driver"`
	DSN             string `yaml:"dsn"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_secs"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// EngineConfig seeds the durable engine parameters on first startup. The
// admin address is fixed here; later threshold changes go through the
// admin-gated setter, not this file.
type EngineConfig struct {
	MaxOracles              int    `yaml:"max_oracles"`
	ConsensusThreshold      int    `yaml:"consensus_threshold"`
	MaxSubmissionsPerOracle int64  `yaml:"max_submissions_per_oracle"`
	StalenessWindowSecs     int64  `yaml:"staleness_window_secs"`
	AdminAddress            string `yaml:"admin_address"`
}

// Config is the root configuration document.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Logging  LoggingConfig  `yaml:"logging"`
	Engine   EngineConfig   `yaml:"engine"`
}

// Load reads the file named by CONFIG_PATH (default config.yaml), fills in
// defaults, and applies environment overrides. A missing file is not an
// error; defaults plus environment are enough for local runs.
func Load() (*Config, error) {
	cfg := defaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(cfg)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return nil, fmt.Errorf("server port %d out of range", cfg.Server.Port)
	}
	return cfg, nil
}

// EngineParams converts the engine section into the domain parameter set.
func (c *Config) EngineParams() valuation.Params {
	return valuation.Params{
		MaxOracles:              c.Engine.MaxOracles,
		ConsensusThreshold:      c.Engine.ConsensusThreshold,
		MaxSubmissionsPerOracle: c.Engine.MaxSubmissionsPerOracle,
		StalenessWindowSecs:     c.Engine.StalenessWindowSecs,
		AdminAddress:            c.Engine.AdminAddress,
	}
}

func defaultConfig() *Config {
	defaults := valuation.DefaultParams()
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8090,
		},
		Database: DatabaseConfig{
			Driver: "postgres",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Engine: EngineConfig{
			MaxOracles:              defaults.MaxOracles,
			ConsensusThreshold:      defaults.ConsensusThreshold,
			MaxSubmissionsPerOracle: defaults.MaxSubmissionsPerOracle,
			StalenessWindowSecs:     defaults.StalenessWindowSecs,
		},
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("ADMIN_ADDRESS"); v != "" {
		cfg.Engine.AdminAddress = v
	}
}
