package domain

import (
	"time"
)

// Config represents the main application configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Abstraction AbstractionConfig `mapstructure:"abstraction"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Review      ReviewConfig      `mapstructure:"review"`
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

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
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

// CacheConfig represents result cache configuration. The engine is
// deterministic over its input snapshot, so results are cached by input hash.
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
	MemorySize  int           `mapstructure:"memory_size"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// AbstractionConfig holds the tunable clinical heuristics of the engine.
// The defaults mirror the source design; they are configuration, not
// clinically re-derived constants.
type AbstractionConfig struct {
	// Segmentation boundary thresholds
	ProgressionGapDays int `mapstructure:"progression_gap_days"`
	EscalationGapDays  int `mapstructure:"escalation_gap_days"`

	// Radiation course grouping
	RadiationCourseGapDays int     `mapstructure:"radiation_course_gap_days"`
	PhaseDoseDeltaGy       float64 `mapstructure:"phase_dose_delta_gy"`

	// Chemotherapy cycle detection
	CycleWindowDays int `mapstructure:"cycle_window_days"`

	// Response integration
	LineChangeWindowDays int `mapstructure:"line_change_window_days"`

	// Protocol match scoring weights
	SurgeryWeight            int `mapstructure:"surgery_weight"`
	ChemoWeight              int `mapstructure:"chemo_weight"`
	RadiationPresenceWeight  int `mapstructure:"radiation_presence_weight"`
	RadiationDoseBonusWeight int `mapstructure:"radiation_dose_bonus_weight"`

	// Confidence cut-offs on the 0-100 match score
	HighConfidenceScore   int `mapstructure:"high_confidence_score"`
	MediumConfidenceScore int `mapstructure:"medium_confidence_score"`
	LowConfidenceScore    int `mapstructure:"low_confidence_score"`
}

// RateLimitConfig represents API rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerSecond int  `mapstructure:"requests_per_second"`
	Burst             int  `mapstructure:"burst"`
}

// ReviewConfig represents reviewer feedback store configuration
type ReviewConfig struct {
	Backend    string `mapstructure:"backend"` // "sqlite" or "postgres"
	SQLitePath string `mapstructure:"sqlite_path"`
}
