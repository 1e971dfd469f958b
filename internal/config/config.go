package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	StorageDriverMemory   = "memory"
	StorageDriverFile     = "file"
	StorageDriverRedis    = "redis"
	StorageDriverPostgres = "postgres"
)

// Config aggregates runtime configuration for the portal and the CLI.
type Config struct {
	App      AppConfig
	Gateway  GatewayConfig
	Storage  StorageConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Guard    GuardConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// GatewayConfig points the client at the platform gateway.
type GatewayConfig struct {
	BaseURL string
	// Zero means no client-side timeout; only context cancellation applies.
	TimeoutSeconds int
}

// StorageConfig selects where the bearer token is persisted.
type StorageConfig struct {
	Driver      string
	Key         string
	FilePath    string
	Secret      string
	RedisPrefix string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// GuardConfig controls the route guard on protected views.
type GuardConfig struct {
	FallbackPath          string
	LoadingTimeoutSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	driver := strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverFile))
	switch driver {
	case StorageDriverMemory, StorageDriverFile, StorageDriverRedis, StorageDriverPostgres:
	default:
		return nil, fmt.Errorf("invalid STORAGE_DRIVER: %q", driver)
	}

	baseURL := strings.TrimRight(getEnv("GATEWAY_BASE_URL", "http://localhost:8765"), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("GATEWAY_BASE_URL must not be empty")
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "mentor-portal"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "127.0.0.1"),
			Port:                  getEnv("APP_PORT", "5173"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 15),
		},
		Gateway: GatewayConfig{
			BaseURL:        baseURL,
			TimeoutSeconds: getEnvAsInt("GATEWAY_TIMEOUT_SECONDS", 0),
		},
		Storage: StorageConfig{
			Driver:      driver,
			Key:         getEnv("STORAGE_KEY", "token"),
			FilePath:    getEnv("STORAGE_FILE", defaultTokenFile()),
			Secret:      os.Getenv("STORAGE_SECRET"),
			RedisPrefix: getEnv("STORAGE_REDIS_PREFIX", "mentor-portal:"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 4)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 0)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Guard: GuardConfig{
			FallbackPath:          getEnv("GUARD_FALLBACK_PATH", "/login"),
			LoadingTimeoutSeconds: getEnvAsInt("GUARD_LOADING_TIMEOUT_SECONDS", 10),
		},
	}

	if cfg.Storage.Driver == StorageDriverPostgres && cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("STORAGE_DRIVER=postgres requires POSTGRES_DSN")
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the gateway client timeout, zero when unset.
func (g GatewayConfig) Timeout() time.Duration {
	if g.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// LoadingTimeout bounds how long a guarded request waits before rendering the loading view.
func (g GuardConfig) LoadingTimeout() time.Duration {
	if g.LoadingTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(g.LoadingTimeoutSeconds) * time.Second
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "mentor-portal", "session")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
