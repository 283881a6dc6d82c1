package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Tables    TablesConfig    `mapstructure:"tables"`
	Frequency FrequencyConfig `mapstructure:"frequency"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Feedback  FeedbackConfig  `mapstructure:"feedback"`
	MCP       MCPConfig       `mapstructure:"mcp"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	TLSEnabled     bool          `mapstructure:"tls_enabled"`
	CertFile       string        `mapstructure:"cert_file"`
	KeyFile        string        `mapstructure:"key_file"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json", "text"
}

// TablesConfig points at an alternate versioned gene-table file.
// An empty path selects the built-in VHL tables.
type TablesConfig struct {
	Path string `mapstructure:"path"`
}

// FrequencyConfig selects and tunes the population-frequency backend.
type FrequencyConfig struct {
	Backend string        `mapstructure:"backend"` // "gnomad", "genebe", "local", "none"
	Timeout time.Duration `mapstructure:"timeout"`
	Ensembl EnsemblConfig `mapstructure:"ensembl"`
	GnomAD  GnomADConfig  `mapstructure:"gnomad"`
	GeneBe  GeneBeConfig  `mapstructure:"genebe"`
	Local   LocalConfig   `mapstructure:"local"`
	Breaker BreakerConfig `mapstructure:"breaker"`
}

// EnsemblConfig represents Ensembl VEP configuration used for HGVS to GRCh38 mapping.
type EnsemblConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"`
}

// GnomADConfig represents gnomAD API configuration
type GnomADConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Dataset   string        `mapstructure:"dataset"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"`
}

// GeneBeConfig represents GeneBe public API configuration
type GeneBeConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Username  string        `mapstructure:"username"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"`
}

// LocalConfig points at a local SQLite frequency table.
type LocalConfig struct {
	Path string `mapstructure:"path"`
}

// BreakerConfig tunes the circuit breaker in front of remote sources.
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

// CacheConfig represents frequency cache configuration
type CacheConfig struct {
	RedisURL   string        `mapstructure:"redis_url"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	MaxItems   int           `mapstructure:"max_items"`
}

// FeedbackConfig selects the curator feedback store.
type FeedbackConfig struct {
	Driver string `mapstructure:"driver"` // "sqlite", "postgres", "none"
	DSN    string `mapstructure:"dsn"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
}
