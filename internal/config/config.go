// Package config handles application configuration loading from environment
// variables and an optional YAML file. It provides a centralized Config
// struct used across the application.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// defaultDBPassword is the development password that production refuses.
const defaultDBPassword = "changeme"

// Config holds all application configuration values.
// Priority: ENV > YAML > env-default tags.
type Config struct {
	// Server settings
	Host       string `yaml:"host"         env:"APP_HOST"     env-default:"0.0.0.0"`
	Port       string `yaml:"port"         env:"APP_PORT"     env-default:"8080"`
	Env        string `yaml:"env"          env:"APP_ENV"      env-default:"development"` // "development", "production", "testing"
	APIBaseURL string `yaml:"api_base_url" env:"API_BASE_URL" env-default:"http://localhost:8080/api"`

	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"APP_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"APP_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"APP_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"APP_SHUTDOWN_TIMEOUT" env-default:"10s"`

	// PostgreSQL connection
	DBHost     string `yaml:"postgres_host"     env:"POSTGRES_HOST"     env-default:"localhost"`
	DBPort     string `yaml:"postgres_port"     env:"POSTGRES_PORT"     env-default:"5432"`
	DBUser     string `yaml:"postgres_user"     env:"POSTGRES_USER"     env-default:"guidebook"`
	DBPassword string `yaml:"postgres_password" env:"POSTGRES_PASSWORD" env-default:"changeme"`
	DBName     string `yaml:"postgres_db"       env:"POSTGRES_DB"       env-default:"guidebook"`
	DBSSLMode  string `yaml:"postgres_sslmode"  env:"POSTGRES_SSLMODE"  env-default:"disable"`

	// Valkey (Redis-compatible cache). An empty host disables the tree
	// cache and the shared rate limiter.
	ValkeyHost     string `yaml:"valkey_host"     env:"VALKEY_HOST"`
	ValkeyPort     string `yaml:"valkey_port"     env:"VALKEY_PORT"     env-default:"6379"`
	ValkeyPassword string `yaml:"valkey_password" env:"VALKEY_PASSWORD"`
	ValkeyDB       int    `yaml:"valkey_db"       env:"VALKEY_DB"       env-default:"0"`

	// Logging. An empty format picks json in production and text elsewhere.
	LogLevel  string `yaml:"log_level"  env:"LOG_LEVEL"  env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT"`

	// HTTP policy
	CORSAllowedOrigins string        `yaml:"cors_allowed_origins"  env:"CORS_ALLOWED_ORIGINS"  env-default:"*"`
	RateLimitPerMinute int           `yaml:"rate_limit_per_minute" env:"RATE_LIMIT_PER_MINUTE" env-default:"60"`
	TreeCacheTTL       time.Duration `yaml:"tree_cache_ttl"        env:"TREE_CACHE_TTL"        env-default:"5m"`
}

// Load reads configuration from the YAML file named by CONFIG_PATH (or
// ./config.yaml when present) and then from environment variables.
// Returns an error if the result fails validation.
func Load() (*Config, error) {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	explicitPath := path != ""
	if !explicitPath {
		path = "./config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicitPath {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks business rules that tags cannot express.
func (c *Config) Validate() error {
	switch c.Env {
	case "development", "production", "testing":
	default:
		return fmt.Errorf("APP_ENV must be development, production or testing (got %q)", c.Env)
	}

	if c.IsProduction() && c.DBPassword == defaultDBPassword {
		return errors.New("POSTGRES_PASSWORD must be set in production")
	}

	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be >= 0 (got %d)", c.RateLimitPerMinute)
	}

	switch strings.ToLower(c.LogFormat) {
	case "", "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text (got %q)", c.LogFormat)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, net.JoinHostPort(c.DBHost, c.DBPort), c.DBName, c.DBSSLMode,
	)
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when raw errors must be hidden from clients.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ValkeyEnabled reports whether a Valkey host is configured.
func (c *Config) ValkeyEnabled() bool {
	return c.ValkeyHost != ""
}

// AllowedOrigins splits CORSAllowedOrigins on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// ResolvedLogFormat returns LogFormat, defaulting by environment.
func (c *Config) ResolvedLogFormat() string {
	if c.LogFormat != "" {
		return strings.ToLower(c.LogFormat)
	}
	if c.IsProduction() {
		return "json"
	}
	return "text"
}
