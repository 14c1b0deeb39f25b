// Package config loads and validates server configuration from files and
// environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/therapy-abstraction-server/internal/domain"
)

// Manager loads, validates and exposes the application configuration.
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	// Set configuration file name and paths
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/therapy-abstraction-server/")

	// Set environment variable prefix and enable automatic env binding
	viper.SetEnvPrefix("THERAPY_ABS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	m.setDefaults()

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	// Unmarshal configuration into struct
	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")
	viper.SetDefault("server.tls_enabled", false)

	// Database defaults
	viper.SetDefault("database.enabled", false)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.database", "therapy_abstraction")
	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("database.migrations_path", "migrations")

	// Cache defaults
	viper.SetDefault("cache.enabled", false)
	viper.SetDefault("cache.redis_url", "redis://localhost:6379")
	viper.SetDefault("cache.default_ttl", "24h")
	viper.SetDefault("cache.max_retries", 3)
	viper.SetDefault("cache.pool_size", 10)
	viper.SetDefault("cache.pool_timeout", "4s")
	viper.SetDefault("cache.memory_size", 1024)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	// Abstraction heuristics. These mirror the source clinical design and are
	// tunable, not re-derived.
	viper.SetDefault("abstraction.progression_gap_days", 30)
	viper.SetDefault("abstraction.escalation_gap_days", 14)
	viper.SetDefault("abstraction.radiation_course_gap_days", 60)
	viper.SetDefault("abstraction.phase_dose_delta_gy", 0.3)
	viper.SetDefault("abstraction.cycle_window_days", 7)
	viper.SetDefault("abstraction.line_change_window_days", 60)
	viper.SetDefault("abstraction.surgery_weight", 20)
	viper.SetDefault("abstraction.chemo_weight", 30)
	viper.SetDefault("abstraction.radiation_presence_weight", 30)
	viper.SetDefault("abstraction.radiation_dose_bonus_weight", 20)
	viper.SetDefault("abstraction.high_confidence_score", 90)
	viper.SetDefault("abstraction.medium_confidence_score", 70)
	viper.SetDefault("abstraction.low_confidence_score", 50)

	// Rate limiting defaults
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests_per_second", 50)
	viper.SetDefault("rate_limit.burst", 100)

	// Review store defaults
	viper.SetDefault("review.backend", "sqlite")
	viper.SetDefault("review.sqlite_path", "review.db")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetDatabaseConfig returns database configuration
func (m *Manager) GetDatabaseConfig() *domain.DatabaseConfig {
	return &m.config.Database
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetAbstractionConfig returns the engine heuristics configuration
func (m *Manager) GetAbstractionConfig() domain.AbstractionConfig {
	return m.config.Abstraction
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	// Validate database configuration when persistence is on
	if config.Database.Enabled {
		if config.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if config.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if config.Database.Username == "" {
			return fmt.Errorf("database username is required")
		}
	}

	// Validate cache configuration when caching is on
	if config.Cache.Enabled {
		if config.Cache.RedisURL == "" && config.Cache.MemorySize <= 0 {
			return fmt.Errorf("cache enabled but neither redis_url nor memory_size configured")
		}
	}

	// Validate abstraction heuristics ordering
	a := config.Abstraction
	if a.LowConfidenceScore <= 0 ||
		a.MediumConfidenceScore <= a.LowConfidenceScore ||
		a.HighConfidenceScore <= a.MediumConfidenceScore {
		return fmt.Errorf("confidence cut-offs must satisfy 0 < low < medium < high")
	}
	if a.ProgressionGapDays <= 0 || a.CycleWindowDays <= 0 || a.RadiationCourseGapDays <= 0 {
		return fmt.Errorf("gap thresholds must be positive")
	}

	// Validate review store backend
	switch config.Review.Backend {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid review backend: %s", config.Review.Backend)
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetDatabaseConnectionString returns a formatted database connection string
func (m *Manager) GetDatabaseConnectionString() string {
	db := m.config.Database
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		db.Host, db.Port, db.Username, db.Password, db.Database, db.SSLMode)
}

// GetRedisConnectionString returns the Redis connection string
func (m *Manager) GetRedisConnectionString() string {
	return m.config.Cache.RedisURL
}

// IsProduction returns true if running in production mode
func IsProduction() bool {
	return strings.ToLower(viper.GetString("environment")) == "production"
}
