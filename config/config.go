package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"payments-authorizenet/database"
)

type Config struct {
	Database database.DatabaseConfig
	AuthNet  AuthNetConfig
	Server   ServerConfig
	Redis    RedisConfig
	Internal InternalConfig
	Logger   LoggerConfig
}

type AuthNetConfig struct {
	APILoginID     string
	TransactionKey string
	IsLive         bool
	IsRecurring    bool
	Timeout        time.Duration
}

type ServerConfig struct {
	Port          string
	BaseURL       string
	SessionSecret string
}

type RedisConfig struct {
	URL               string
	WorkerConcurrency int
}

type InternalConfig struct {
	JWTSecret string
	Issuer    string
}

type LoggerConfig struct {
	Level  string
	Format string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", "error", err)
	}

	cfg := &Config{
		Database: database.DatabaseConfig{
			Host:     os.Getenv("DB_HOST"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   os.Getenv("DB_NAME"),
		},
		AuthNet: AuthNetConfig{
			APILoginID:     os.Getenv("AUTHNET_API_LOGIN_ID"),
			TransactionKey: os.Getenv("AUTHNET_TRANSACTION_KEY"),
			IsLive:         getBool("AUTHNET_IS_LIVE", false),
			IsRecurring:    getBool("AUTHNET_IS_RECURRING", false),
			Timeout:        getDuration("AUTHNET_TIMEOUT", 30*time.Second),
		},
		Server: ServerConfig{
			Port:          getEnv("SERVER_PORT", "8080"),
			BaseURL:       strings.TrimRight(getEnv("SERVER_BASE_URL", "http://localhost:8080"), "/"),
			SessionSecret: os.Getenv("SESSION_SECRET"),
		},
		Redis: RedisConfig{
			URL:               getEnv("REDIS_URL", "redis://localhost:6379/0"),
			WorkerConcurrency: getInt("WORKER_CONCURRENCY", 2),
		},
		Internal: InternalConfig{
			JWTSecret: os.Getenv("INTERNAL_JWT_SECRET"),
			Issuer:    getEnv("INTERNAL_JWT_ISSUER", "payments-authorizenet"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	// Never log the config struct itself: it carries the transaction key.
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"live", cfg.AuthNet.IsLive,
		"recurring", cfg.AuthNet.IsRecurring,
		"worker_concurrency", cfg.Redis.WorkerConcurrency,
	)

	return cfg
}

// Validate reports settings the service cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.AuthNet.APILoginID == "" {
		errs = append(errs, errors.New("AUTHNET_API_LOGIN_ID is required"))
	}
	if c.AuthNet.TransactionKey == "" {
		errs = append(errs, errors.New("AUTHNET_TRANSACTION_KEY is required"))
	}
	if c.Server.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_SECRET is required"))
	}
	if c.Internal.JWTSecret == "" {
		errs = append(errs, errors.New("INTERNAL_JWT_SECRET is required"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("invalid boolean in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return b
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("invalid integer in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", value)
		return defaultValue
	}
	return d
}
