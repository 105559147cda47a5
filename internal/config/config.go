package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	S3       S3Config
	Loyalty  LoyaltyConfig
	Janitor  JanitorConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host string `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port int    `envconfig:"SERVER_PORT" default:"8080"`
}

// DatabaseConfig holds database-related configuration.
type DatabaseConfig struct {
	Host            string        `envconfig:"DB_HOST" default:"localhost"`
	Port            int           `envconfig:"DB_PORT" default:"5432"`
	User            string        `envconfig:"DB_USER" default:"postgres"`
	Password        string        `envconfig:"DB_PASSWORD"`
	Database        string        `envconfig:"DB_NAME" default:"levelup"`
	SSLMode         string        `envconfig:"DB_SSLMODE" default:"disable"`
	MaxConnections  int           `envconfig:"DB_MAX_CONNECTIONS" default:"25"`
	MinConnections  int           `envconfig:"DB_MIN_CONNECTIONS" default:"5"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"5m"`
	AutoMigrate     bool          `envconfig:"DB_AUTO_MIGRATE" default:"false"`
}

// LoggerConfig holds logger-related configuration.
type LoggerConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"json"` // "json" or "console"
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	APIKey string `envconfig:"API_KEY"`
}

// S3Config holds AWS S3 configuration for scan batch files.
type S3Config struct {
	Enabled bool   `envconfig:"S3_ENABLED" default:"false"`
	Bucket  string `envconfig:"S3_BUCKET"`
	Region  string `envconfig:"S3_REGION" default:"us-east-1"`
	Prefix  string `envconfig:"S3_PREFIX" default:"scans/"`
}

// LoyaltyConfig holds the cart and checkout policy knobs.
type LoyaltyConfig struct {
	// MemberEmailDomain marks users whose email belongs to the partner
	// institution as members.
	MemberEmailDomain     string        `envconfig:"MEMBER_EMAIL_DOMAIN" default:"duoc.cl"`
	MemberDiscountPercent int           `envconfig:"MEMBER_DISCOUNT_PERCENT" default:"20"`
	PaymentDelay          time.Duration `envconfig:"CHECKOUT_PAYMENT_DELAY" default:"0s"`
	LeaderboardSize       int           `envconfig:"LEADERBOARD_SIZE" default:"10"`
}

// JanitorConfig controls the expired discount purge loop.
type JanitorConfig struct {
	Enabled  bool          `envconfig:"DISCOUNT_PURGE_ENABLED" default:"true"`
	Interval time.Duration `envconfig:"DISCOUNT_PURGE_INTERVAL" default:"1h"`
}

// Load loads configuration from environment variables, reading a .env file first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}

	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.Database.MaxConnections < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}

	if c.Database.MinConnections < 1 {
		return fmt.Errorf("database min connections must be at least 1")
	}

	if c.Database.MinConnections > c.Database.MaxConnections {
		return fmt.Errorf("database min connections cannot exceed max connections")
	}

	if c.Auth.APIKey == "" {
		return fmt.Errorf("API key is required")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}

	if !validLogLevels[c.Logger.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("invalid log format: %s (must be json or console)", c.Logger.Format)
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			return fmt.Errorf("S3 bucket is required when S3 is enabled")
		}
		if c.S3.Region == "" {
			return fmt.Errorf("S3 region is required when S3 is enabled")
		}
	}

	if strings.TrimSpace(c.Loyalty.MemberEmailDomain) == "" {
		return fmt.Errorf("member email domain is required")
	}

	if c.Loyalty.MemberDiscountPercent < 0 || c.Loyalty.MemberDiscountPercent > 100 {
		return fmt.Errorf("invalid member discount percent: %d (must be 0..100)", c.Loyalty.MemberDiscountPercent)
	}

	if c.Loyalty.PaymentDelay < 0 {
		return fmt.Errorf("checkout payment delay cannot be negative")
	}

	if c.Loyalty.LeaderboardSize < 1 {
		return fmt.Errorf("leaderboard size must be at least 1")
	}

	if c.Janitor.Enabled && c.Janitor.Interval <= 0 {
		return fmt.Errorf("discount purge interval must be positive")
	}

	return nil
}

// ConnectionString returns the PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Database,
		c.SSLMode,
	)
}

// Address returns the server address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
