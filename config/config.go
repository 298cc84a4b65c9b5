package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	App      AppConfig
	Registry RegistryConfig
	Firebase FirebaseConfig

	// Warnings collects problems Load recovered from. They are logged once
	// the logger exists.
	Warnings []string
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
	RateLimitRPS   int
	RateLimitBurst int
}

// RateLimitEnabled reports whether writes are rate limited. A zero rate or
// a zero burst turns the limiter off.
func (s ServerConfig) RateLimitEnabled() bool {
	return s.RateLimitRPS > 0 && s.RateLimitBurst > 0
}

type DatabaseConfig struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AppConfig struct {
	Environment string
	LogLevel    string
	Version     string
	StatsCron   string
}

// RegistryConfig selects the grant store and the text limits enforced on writes.
type RegistryConfig struct {
	StoreDriver     string
	EventsEnabled   bool
	MaxInfoBytes    int
	MaxDataBytes    int
	MaxMessageBytes int
}

type FirebaseConfig struct {
	CredentialsPath string
}

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

type envReader struct {
	warnings []string
}

func (r *envReader) warnf(format string, args ...any) {
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
}

func Load() (*Config, error) {
	env := &envReader{}

	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		env.warnf("no .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			RateLimitRPS:   env.getEnvAsInt("RATE_LIMIT_RPS", 10),
			RateLimitBurst: env.getEnvAsInt("RATE_LIMIT_BURST", 20),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DB_DSN", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     env.getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "grants"),
			MaxConns: env.getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns: env.getEnvAsInt("DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       env.getEnvAsInt("REDIS_DB", 0),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			StatsCron:   getEnv("STATS_CRON", "0 * * * * *"),
		},
		Registry: RegistryConfig{
			StoreDriver:     strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
			EventsEnabled:   env.getEnvAsBool("EVENTS_ENABLED", false),
			MaxInfoBytes:    env.getEnvAsInt("MAX_INFO_BYTES", 4096),
			MaxDataBytes:    env.getEnvAsInt("MAX_DATA_BYTES", 16384),
			MaxMessageBytes: env.getEnvAsInt("MAX_MESSAGE_BYTES", 1024),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
	}

	cfg.Warnings = env.warnings

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Registry.StoreDriver {
	case StoreMemory, StoreRedis:
	case StorePostgres:
		if c.Database.DSN == "" && c.Database.Host == "" {
			return fmt.Errorf("DB_DSN or DB_HOST is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Registry.StoreDriver)
	}

	if c.Registry.MaxInfoBytes <= 0 || c.Registry.MaxDataBytes <= 0 || c.Registry.MaxMessageBytes <= 0 {
		return fmt.Errorf("text limits must be positive")
	}

	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		return fmt.Errorf("rate limit settings must not be negative")
	}

	return nil
}

// NeedsRedis reports whether the redis client has to be opened.
func (c *Config) NeedsRedis() bool {
	return c.Registry.StoreDriver == StoreRedis || c.Registry.EventsEnabled
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (r *envReader) getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		r.warnf("invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func (r *envReader) getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		r.warnf("invalid boolean for %s, using default: %t", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	out := make([]string, 0, 4)
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
