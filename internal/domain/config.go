package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig represents record store configuration. Driver selects the
// backend: "postgres" for the pgx pool, "sqlite" for the embedded store.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// LLMConfig represents the external language-model service configuration.
// The gateway enforces RequestTimeout per attempt and retries Timeout or
// ServiceUnavailable failures RetryCount times with exponential backoff.
type LLMConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	APIKey           string        `mapstructure:"api_key"`
	Model            string        `mapstructure:"model"`
	MaxTokens        int           `mapstructure:"max_tokens"`
	Temperature      float32       `mapstructure:"temperature"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	RetryCount       int           `mapstructure:"retry_count"`
	RetryBackoff     time.Duration `mapstructure:"retry_backoff"`
	RateLimit        int           `mapstructure:"rate_limit"`
	MinSummaryLength int           `mapstructure:"min_summary_length"`
}

// CacheConfig represents the adapted-question cache configuration. When
// RedisURL is empty an in-process LRU is used instead.
type CacheConfig struct {
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
	LRUSize     int           `mapstructure:"lru_size"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
