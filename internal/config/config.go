package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Service  ServiceConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Hub      HubConfig
	Logger   LoggerConfig
}

type ServiceConfig struct {
	Name            string
	Env             string
	Port            string
	ShutdownTimeout time.Duration
}

type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL         string
	PingTimeout time.Duration
}

type AuthConfig struct {
	Secret   string
	Issuer   string
	TokenTTL time.Duration
}

type HubConfig struct {
	// Broadcast is either "local" or "redis".
	Broadcast     string
	ChannelPrefix string
	// AllowedOrigins lists browser origins that may open a websocket. Empty
	// means same-origin only; "*" allows any origin.
	AllowedOrigins []string
}

type LoggerConfig struct {
	Level     string
	Format    string
	AddSource bool
}

// Load reads configuration from the environment. Callers load .env first.
func Load() (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:            getEnv("SERVICE_NAME", "chatsync"),
			Env:             getEnv("APP_ENV", "development"),
			Port:            getEnv("PORT", "8080"),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			DSN:             getEnv("DATABASE_URL", defaultDSN()),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
			PingTimeout: getEnvDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		},
		Auth: AuthConfig{
			Secret:   os.Getenv("JWT_SECRET"),
			Issuer:   getEnv("JWT_ISSUER", "chatsync"),
			TokenTTL: getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		Hub: HubConfig{
			Broadcast:      strings.ToLower(getEnv("HUB_BROADCAST", BroadcastLocal)),
			ChannelPrefix:  getEnv("HUB_CHANNEL_PREFIX", "chatsync:"),
			AllowedOrigins: getEnvList("HUB_ALLOWED_ORIGINS"),
		},
		Logger: LoggerConfig{
			Level:     getEnv("LOG_LEVEL", "INFO"),
			Format:    getEnv("LOG_FORMAT", "TEXT"),
			AddSource: getEnvBool("LOG_ADD_SOURCE", false),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.Secret == "" {
		return fmt.Errorf("config: JWT_SECRET is required")
	}
	switch c.Hub.Broadcast {
	case BroadcastLocal, BroadcastRedis:
	default:
		return fmt.Errorf("config: unknown HUB_BROADCAST %q", c.Hub.Broadcast)
	}
	return nil
}

func defaultDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "chatsync"),
		getEnv("DB_PORT", "5432"),
	)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
