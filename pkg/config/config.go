package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for dataforge-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8090"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Inference endpoint used for row generation
	Inference InferenceConfig `yaml:"inference"`

	// Generation run behavior
	Generation GenerationConfig `yaml:"generation"`

	// In-memory grid view settings
	Grid GridConfig `yaml:"grid"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"dataforge"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"dataforge_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// InferenceConfig holds the OpenAI-compatible inference endpoint settings.
type InferenceConfig struct {
	Endpoint    string  `yaml:"endpoint" env:"INFERENCE_ENDPOINT" env-default:"http://localhost:8080/v1"`
	Model       string  `yaml:"model" env:"INFERENCE_MODEL" env-default:""`
	APIKey      string  `yaml:"-" env:"INFERENCE_API_KEY"` // Secret - not in YAML
	Temperature float64 `yaml:"temperature" env:"INFERENCE_TEMPERATURE" env-default:"0.8"`
	MaxTokens   int     `yaml:"max_tokens" env:"INFERENCE_MAX_TOKENS" env-default:"256"`
}

// GenerationConfig holds generation run behavior settings.
type GenerationConfig struct {
	// MaxRowsPerRun caps the row count a single run may request.
	MaxRowsPerRun int64 `yaml:"max_rows_per_run" env:"GENERATION_MAX_ROWS_PER_RUN" env-default:"10000"`
	// FrequencyResetInterval is how many rows pass between resets of the
	// word/phrase diversity tracker.
	FrequencyResetInterval int `yaml:"frequency_reset_interval" env:"GENERATION_FREQUENCY_RESET_INTERVAL" env-default:"20"`
}

// GridConfig holds the in-memory paged view settings.
type GridConfig struct {
	// PageCapacity is the maximum number of rows kept resident in the
	// current page while a run streams output.
	PageCapacity int `yaml:"page_capacity" env:"GRID_PAGE_CAPACITY" env-default:"100"`
	// DefaultPageSize is used when a fetch request omits page_size.
	DefaultPageSize int `yaml:"default_page_size" env:"GRID_DEFAULT_PAGE_SIZE" env-default:"50"`
}

// Load reads configuration from the given YAML file with environment
// variable overrides. A missing file is not an error; configuration then
// comes from environment variables and defaults alone. The version parameter
// is injected at build time and set on the returned Config.
func Load(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment config: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Grid.PageCapacity <= 0 {
		return fmt.Errorf("grid page_capacity must be positive, got %d", c.Grid.PageCapacity)
	}
	if c.Grid.DefaultPageSize <= 0 {
		return fmt.Errorf("grid default_page_size must be positive, got %d", c.Grid.DefaultPageSize)
	}
	if c.Generation.MaxRowsPerRun <= 0 {
		return fmt.Errorf("generation max_rows_per_run must be positive, got %d", c.Generation.MaxRowsPerRun)
	}
	return nil
}
