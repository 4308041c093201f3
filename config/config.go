package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Import    ImportConfig    `mapstructure:"import"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// AuthConfig holds API authentication configuration
type AuthConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// RateLimitConfig holds rate limiting and retry configuration, shared by
// the server middleware and the outbound referential fetch client
type RateLimitConfig struct {
	RequestsPerSecond int `mapstructure:"requests_per_second"`
	Burst             int `mapstructure:"burst"`
	MaxRetries        int `mapstructure:"max_retries"`
	InitialBackoffMs  int `mapstructure:"initial_backoff_ms"`
	MaxBackoffMs      int `mapstructure:"max_backoff_ms"`
}

// EngineConfig holds computation engine defaults
type EngineConfig struct {
	DefaultBonification float64 `mapstructure:"default_bonification"`
	DefaultCoefficient  float64 `mapstructure:"default_coefficient"`
	// ChangeTolerance is the persistence-side equality threshold: stored
	// snapshots are rewritten only when a figure moves by more than this.
	ChangeTolerance float64 `mapstructure:"change_tolerance"`
}

// CacheConfig holds referential cache configuration
type CacheConfig struct {
	TTL                     time.Duration `mapstructure:"ttl"`
	LoadTimeout             time.Duration `mapstructure:"load_timeout"`
	RefreshJitter           time.Duration `mapstructure:"refresh_jitter"`
	BreakerFailureThreshold int           `mapstructure:"breaker_failure_threshold"`
	BreakerResetTimeout     time.Duration `mapstructure:"breaker_reset_timeout"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	ClaimTTL         time.Duration `mapstructure:"claim_ttl"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval"`
	RecomputeWorkers int64         `mapstructure:"recompute_workers"`
}

// ImportConfig holds referential import configuration
type ImportConfig struct {
	MaxFileSizeBytes int64         `mapstructure:"max_file_size_bytes"`
	MaxZipEntries    int           `mapstructure:"max_zip_entries"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
}

// StorageConfig holds storage configuration
type StorageConfig struct {
	Type     string `mapstructure:"type"`
	BasePath string `mapstructure:"base_path"`
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

var globalConfig *Config

// Load loads the configuration from file, .env, and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// Load .env file
	if err := loadEnvFile(v); err != nil {
		// .env is optional, log but don't fail
		log.Warn().Err(err).Msg("Warning: .env file not loaded")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvPrefix("CEE_SERVICE")

	// Bind env keys for nested config
	bindEnvVars(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = &cfg
	return &cfg, nil
}

// Validate checks cross-field invariants that viper cannot express.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port %d out of range", c.Server.Port)
	}
	if c.Engine.DefaultBonification <= 0 {
		return fmt.Errorf("invalid config: engine.default_bonification must be positive")
	}
	if c.Engine.DefaultCoefficient <= 0 {
		return fmt.Errorf("invalid config: engine.default_coefficient must be positive")
	}
	if c.Engine.ChangeTolerance < 0 {
		return fmt.Errorf("invalid config: engine.change_tolerance must not be negative")
	}
	if c.Worker.MaxAttempts < 1 {
		return fmt.Errorf("invalid config: worker.max_attempts must be at least 1")
	}
	return nil
}

// loadEnvFile loads .env file by parsing KEY=VALUE lines and setting them as environment variables
func loadEnvFile(v *viper.Viper) error {
	envPaths := []string{
		".",
		"..",
		"./config",
	}

	for _, path := range envPaths {
		envFile := fmt.Sprintf("%s/.env", path)
		if _, err := os.Stat(envFile); err == nil {
			if err := loadDotEnvFile(envFile); err == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("no .env file found")
}

// loadDotEnvFile reads a .env file and sets environment variables
func loadDotEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			// Remove quotes if present
			value = strings.Trim(value, "\"'")
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Database
	v.BindEnv("database.url", "DATABASE_URL")

	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.host", "HOST")

	// Auth
	v.BindEnv("auth.api_key", "API_KEY")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")

	// Storage
	v.BindEnv("storage.base_path", "STORAGE_PATH")

	// Telemetry
	v.BindEnv("telemetry.otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", 1*time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	// Rate limit defaults
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)
	v.SetDefault("rate_limit.max_retries", 3)
	v.SetDefault("rate_limit.initial_backoff_ms", 100)
	v.SetDefault("rate_limit.max_backoff_ms", 30000)

	// Engine defaults: bonification 2 and coefficient 1 are the regulatory
	// fallbacks, 0.005 EUR is the legacy snapshot equality threshold.
	v.SetDefault("engine.default_bonification", 2.0)
	v.SetDefault("engine.default_coefficient", 1.0)
	v.SetDefault("engine.change_tolerance", 0.005)

	// Cache defaults
	v.SetDefault("cache.ttl", 1*time.Hour)
	v.SetDefault("cache.load_timeout", 30*time.Second)
	v.SetDefault("cache.refresh_jitter", 5*time.Minute)
	v.SetDefault("cache.breaker_failure_threshold", 5)
	v.SetDefault("cache.breaker_reset_timeout", 30*time.Second)

	// Worker defaults
	v.SetDefault("worker.enabled", true)
	v.SetDefault("worker.poll_interval", 5*time.Second)
	v.SetDefault("worker.claim_ttl", 5*time.Minute)
	v.SetDefault("worker.max_attempts", 3)
	v.SetDefault("worker.sweep_interval", 1*time.Minute)
	v.SetDefault("worker.recompute_workers", 4)

	// Import defaults
	v.SetDefault("import.max_file_size_bytes", int64(50*1024*1024))
	v.SetDefault("import.max_zip_entries", 100)
	v.SetDefault("import.fetch_timeout", 2*time.Minute)

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.base_path", "./data/archives")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.service_name", "cee-service")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// GetDatabaseURL returns the database URL from config or environment
func GetDatabaseURL() string {
	if cfg := Get(); cfg != nil && cfg.Database.URL != "" {
		return cfg.Database.URL
	}
	return os.Getenv("DATABASE_URL")
}
