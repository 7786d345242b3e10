package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Outbound mail (Resend)
	Mail MailConfig

	// Scheduled jobs
	Digest DigestConfig
	Ingest IngestConfig

	// Shared secret expected in the x-cron-secret header of trigger endpoints.
	// Empty disables the check.
	CronSecret string

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	URL      string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// MailConfig holds the email delivery API configuration
type MailConfig struct {
	APIKey    string
	BaseURL   string
	FromEmail string
	Brand     string
	DryRun    bool // log messages instead of sending
}

// DigestConfig controls the daily digest job
type DigestConfig struct {
	Schedule          string
	TopAccounts       int
	SignalsPerAccount int
	Window            time.Duration
	LockTTL           time.Duration
}

// IngestConfig controls RSS ingestion
type IngestConfig struct {
	Schedule     string
	MaxPerFeed   int
	UserAgent    string
	FetchTimeout time.Duration
	RulesPath    string // optional YAML override of the classifier rules
	HostRate     float64
	HostBurst    int
}

// Load reads configuration from environment variables
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	// Try multiple paths for .env file
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			Name:            getEnv("DB_NAME", "radar"),
			User:            getEnv("DB_USER", "radar"),
			Password:        getEnv("DB_PASSWORD", ""),
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Mail: MailConfig{
			APIKey:    getEnv("RESEND_API_KEY", ""),
			BaseURL:   getEnv("RESEND_BASE_URL", "https://api.resend.com"),
			FromEmail: getEnv("FROM_EMAIL", "LifeScienceSignals <onboarding@resend.dev>"),
			Brand:     getEnv("MAIL_BRAND", "LifeScienceSignals"),
			DryRun:    getEnvAsBool("MAIL_DRY_RUN", false),
		},

		Digest: DigestConfig{
			Schedule:          getEnv("DIGEST_SCHEDULE", "0 0 7 * * *"),
			TopAccounts:       getEnvAsInt("DIGEST_TOP_ACCOUNTS", 10),
			SignalsPerAccount: getEnvAsInt("DIGEST_SIGNALS_PER_ACCOUNT", 5),
			Window:            getEnvAsDuration("DIGEST_WINDOW", "168h"),
			LockTTL:           getEnvAsDuration("DIGEST_LOCK_TTL", "30m"),
		},

		Ingest: IngestConfig{
			Schedule:     getEnv("INGEST_SCHEDULE", "0 */30 * * * *"),
			MaxPerFeed:   getEnvAsInt("INGEST_MAX_PER_FEED", 25),
			UserAgent:    getEnv("INGEST_USER_AGENT", "LifeScienceSignalsRSS/1.0"),
			FetchTimeout: getEnvAsDuration("INGEST_FETCH_TIMEOUT", "15s"),
			RulesPath:    getEnv("INGEST_RULES_PATH", ""),
			HostRate:     getEnvAsFloat("INGEST_HOST_RATE", 1.0),
			HostBurst:    getEnvAsInt("INGEST_HOST_BURST", 2),
		},

		CronSecret: getEnv("CRON_SECRET", ""),

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	// Database URL is required
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Digest.TopAccounts <= 0 {
		return fmt.Errorf("DIGEST_TOP_ACCOUNTS must be positive")
	}
	if c.Digest.SignalsPerAccount <= 0 {
		return fmt.Errorf("DIGEST_SIGNALS_PER_ACCOUNT must be positive")
	}
	if c.Digest.Window <= 0 {
		return fmt.Errorf("DIGEST_WINDOW must be positive")
	}

	// Production must be able to send mail
	if c.Env == "production" && c.Mail.APIKey == "" && !c.Mail.DryRun {
		return fmt.Errorf("RESEND_API_KEY is required in production (or set MAIL_DRY_RUN)")
	}

	return nil
}

// MailEnabled reports whether real mail delivery is configured
func (c *Config) MailEnabled() bool {
	return c.Mail.APIKey != "" && !c.Mail.DryRun
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	// Try paths in order of priority
	paths := []string{
		".env",         // Current directory
		"backend/.env", // From project root
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
