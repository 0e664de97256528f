package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Reasoning ReasoningConfig `mapstructure:"reasoning"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	TLSEnabled   bool          `mapstructure:"tls_enabled"`
	CertFile     string        `mapstructure:"cert_file"`
	KeyFile      string        `mapstructure:"key_file"`
}

// DatabaseConfig represents the note repository connection configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// AuditConfig selects and configures the compliance-flag/approval store
type AuditConfig struct {
	Driver      string `mapstructure:"driver"` // "sqlite" or "postgres"
	SQLitePath  string `mapstructure:"sqlite_path"`
	PostgresDSN string `mapstructure:"postgres_dsn"`
}

// PipelineConfig holds the clinical pipeline tunables
type PipelineConfig struct {
	OpinionCount                 int           `mapstructure:"opinion_count"`
	SymptomDurationThresholdDays int           `mapstructure:"symptom_duration_threshold_days"`
	CouncilTimeout               time.Duration `mapstructure:"council_timeout"`
	FreshnessWindowDays          int           `mapstructure:"freshness_window_days"`
}

// ReasoningConfig selects and configures the external reasoning backend
type ReasoningConfig struct {
	Backend    string        `mapstructure:"backend"` // "local" or "http"
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  int           `mapstructure:"rate_limit"` // requests per second
	RetryCount int           `mapstructure:"retry_count"`
	CacheSize  int           `mapstructure:"cache_size"` // in-memory opinion cache entries
}

// KnowledgeConfig points at optional knowledge table override files.
// Empty paths mean the built-in tables are used.
type KnowledgeConfig struct {
	PrevalencePath   string `mapstructure:"prevalence_path"`
	ICD10Path        string `mapstructure:"icd10_path"`
	InteractionsPath string `mapstructure:"interactions_path"`
	Version          string `mapstructure:"version"`
}

// CacheConfig represents the distributed opinion cache configuration
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
