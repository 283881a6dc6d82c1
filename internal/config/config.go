package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/vhl-acmg-classifier/internal/domain"
)

// EnvPrefix prefixes every environment override, e.g. VHL_ACMG_FREQUENCY_BACKEND.
const EnvPrefix = "VHL_ACMG"

// Manager loads configuration through Viper
type Manager struct {
	v      *viper.Viper
	path   string
	config *domain.Config
}

// NewManager creates a new configuration manager. An empty path searches for
// config.yaml in the working directory, ./config and /etc/vhl-classifier.
func NewManager(path string) (*Manager, error) {
	m := &Manager{path: path}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.path != "" {
		v.SetConfigFile(m.path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/vhl-classifier/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || m.path != "" {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values. Every key needs a default for
// AutomaticEnv to pick up its environment override during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.tls_enabled", false)
	v.SetDefault("server.cert_file", "")
	v.SetDefault("server.key_file", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Gene tables
	v.SetDefault("tables.path", "")

	// Frequency backend defaults
	v.SetDefault("frequency.backend", "gnomad")
	v.SetDefault("frequency.timeout", "10s")
	v.SetDefault("frequency.ensembl.base_url", "https://rest.ensembl.org")
	v.SetDefault("frequency.ensembl.timeout", "10s")
	v.SetDefault("frequency.ensembl.rate_limit", 15)
	v.SetDefault("frequency.gnomad.base_url", "https://gnomad.broadinstitute.org/api")
	v.SetDefault("frequency.gnomad.dataset", "gnomad_r4")
	v.SetDefault("frequency.gnomad.timeout", "10s")
	v.SetDefault("frequency.gnomad.rate_limit", 2)
	v.SetDefault("frequency.genebe.base_url", "https://api.genebe.net")
	v.SetDefault("frequency.genebe.api_key", "")
	v.SetDefault("frequency.genebe.username", "")
	v.SetDefault("frequency.genebe.timeout", "10s")
	v.SetDefault("frequency.genebe.rate_limit", 5)
	v.SetDefault("frequency.local.path", "./data/gnomad_vhl.db")
	v.SetDefault("frequency.breaker.max_requests", 3)
	v.SetDefault("frequency.breaker.interval", "30s")
	v.SetDefault("frequency.breaker.timeout", "60s")
	v.SetDefault("frequency.breaker.failure_threshold", 3)

	// Cache defaults
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.default_ttl", "24h")
	v.SetDefault("cache.max_items", 1000)

	// Feedback store defaults
	v.SetDefault("feedback.driver", "sqlite")
	v.SetDefault("feedback.dsn", defaultFeedbackPath())

	// MCP defaults
	v.SetDefault("mcp.server_name", "vhl-acmg-classifier")
	v.SetDefault("mcp.server_version", "1.0.0")
}

func defaultFeedbackPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data/feedback.db"
	}
	return home + "/.vhl-classifier/feedback.db"
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetFrequencyConfig returns the frequency backend configuration
func (m *Manager) GetFrequencyConfig() *domain.FrequencyConfig {
	return &m.config.Frequency
}

// ConfigFileUsed returns the file the configuration was read from, if any.
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.TLSEnabled && (config.Server.CertFile == "" || config.Server.KeyFile == "") {
		return fmt.Errorf("TLS enabled but cert_file or key_file is missing")
	}

	if _, err := logrus.ParseLevel(config.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}
	switch strings.ToLower(config.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %s", config.Logging.Format)
	}

	freq := config.Frequency
	if freq.Timeout <= 0 {
		return fmt.Errorf("frequency timeout must be positive, got %s", freq.Timeout)
	}
	switch freq.Backend {
	case "none":
	case "gnomad":
		if freq.GnomAD.BaseURL == "" {
			return fmt.Errorf("gnomAD base URL is required")
		}
	case "genebe":
		if freq.GeneBe.BaseURL == "" {
			return fmt.Errorf("GeneBe base URL is required")
		}
	case "local":
		if freq.Local.Path == "" {
			return fmt.Errorf("local frequency table path is required")
		}
	default:
		return fmt.Errorf("invalid frequency backend: %q (want gnomad, genebe, local or none)", freq.Backend)
	}
	if freq.Backend != "none" && freq.Ensembl.BaseURL == "" {
		return fmt.Errorf("Ensembl base URL is required for the %s backend", freq.Backend)
	}

	if config.Cache.MaxItems < 0 {
		return fmt.Errorf("cache max_items must not be negative")
	}
	if config.Cache.DefaultTTL < 0 {
		return fmt.Errorf("cache default_ttl must not be negative")
	}

	switch config.Feedback.Driver {
	case "none":
	case "sqlite", "postgres":
		if config.Feedback.DSN == "" {
			return fmt.Errorf("feedback dsn is required for driver %s", config.Feedback.Driver)
		}
	default:
		return fmt.Errorf("invalid feedback driver: %q (want sqlite, postgres or none)", config.Feedback.Driver)
	}

	return nil
}

// NewLogger builds the process logger from the logging section.
func NewLogger(cfg domain.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if strings.ToLower(cfg.Format) == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	}
	return logger
}
