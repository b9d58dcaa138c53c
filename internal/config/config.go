package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Messaging MessagingConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	Secure         bool   // Send HSTS
	Environment    string // "development", "production", "test"
	Debug          bool
	LogLevel       string // debug, info, warn or error; DEBUG=true forces debug
	MigrationsPath string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	RateLimit  int // requests per minute per client on /register and /login
	RateWindow time.Duration
}

type MessagingConfig struct {
	DefaultPageSize int
	MaxPageSize     int
	// WSAllowAnyOrigin disables the websocket origin check (development only).
	WSAllowAnyOrigin bool
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvInt("SERVER_PORT", 8080),
			Secure:         getEnvBool("SERVER_SECURE", false),
			Environment:    getEnv("APP_ENV", "development"),
			Debug:          getEnvBool("DEBUG", false),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "circle"),
			Password: getEnv("DB_PASSWORD", "circle"),
			DBName:   getEnv("DB_NAME", "circleboard"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret:  getEnv("JWT_SECRET", ""),
			TokenTTL:   getEnvDuration("JWT_TTL", 24*time.Hour),
			RateLimit:  getEnvInt("AUTH_RATE_LIMIT", 20),
			RateWindow: getEnvDuration("AUTH_RATE_WINDOW", time.Minute),
		},
		Messaging: MessagingConfig{
			DefaultPageSize:  getEnvInt("MESSAGES_PAGE_SIZE", 20),
			MaxPageSize:      getEnvInt("MESSAGES_MAX_PAGE_SIZE", 100),
			WSAllowAnyOrigin: getEnvBool("WS_ALLOW_ANY_ORIGIN", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		if c.Server.Environment == "production" {
			return errors.New("JWT_SECRET is required in production")
		}
		c.Auth.JWTSecret = "development-secret-change-me"
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Messaging.DefaultPageSize <= 0 || c.Messaging.MaxPageSize < c.Messaging.DefaultPageSize {
		return fmt.Errorf("invalid message page sizes: default %d, max %d",
			c.Messaging.DefaultPageSize, c.Messaging.MaxPageSize)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
