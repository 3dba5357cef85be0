// Package config loads and validates the application configuration from a
// YAML file, environment variables, and defaults, in that order of
// precedence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/kccq-triage-server/internal/domain"
)

// Manager implements domain.ConfigManager using Viper.
type Manager struct {
	config *domain.Config
}

// NewManager loads the configuration.
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/kccq-triage-server/")

	viper.SetEnvPrefix("KCCQ")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and env vars suffice.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Record store defaults. The embedded store keeps single-node setups
	// free of external dependencies.
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.sqlite_path", "./data/triage.db")
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "kccq_triage")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.min_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("database.conn_max_idle_time", "5m")
	viper.SetDefault("database.migrations_path", "./migrations")

	// Language-model gateway defaults
	viper.SetDefault("llm.base_url", "")
	viper.SetDefault("llm.model", "gpt-4o-mini")
	viper.SetDefault("llm.max_tokens", 512)
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.request_timeout", "30s")
	viper.SetDefault("llm.retry_count", 2)
	viper.SetDefault("llm.retry_backoff", "500ms")
	viper.SetDefault("llm.rate_limit", 10)
	viper.SetDefault("llm.min_summary_length", 40)

	// Adapted-question cache defaults
	viper.SetDefault("cache.redis_url", "")
	viper.SetDefault("cache.default_ttl", "24h")
	viper.SetDefault("cache.max_retries", 3)
	viper.SetDefault("cache.pool_size", 10)
	viper.SetDefault("cache.pool_timeout", "4s")
	viper.SetDefault("cache.lru_size", 256)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
}

// GetConfig returns the complete configuration.
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// Validate validates the configuration.
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Database.Driver {
	case "sqlite":
		if config.Database.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case "postgres":
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	default:
		return fmt.Errorf("unknown database driver: %s", config.Database.Driver)
	}

	if config.LLM.RetryCount < 0 {
		return fmt.Errorf("llm retry count must not be negative")
	}
	if config.LLM.RequestTimeout <= 0 {
		return fmt.Errorf("llm request timeout must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// DatabaseURL returns the migration connection URL for Postgres.
func (m *Manager) DatabaseURL() string {
	db := m.config.Database
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.Username, db.Password, db.Host, db.Port, db.Database, db.SSLMode)
}
