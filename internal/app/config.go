package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/phenrril/storefront/internal/notify"
)

type Config struct {
	Port    string
	Env     string
	BaseURL string

	DBDriver   string
	DBDSN      string
	SQLitePath string

	JWTSecret   string
	JWTTTL      time.Duration
	BcryptCost  int
	RateLimit   int
	BaseLabels  int
	MetricsNS   string
	StripeWHSec string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TemporalHost      string
	TemporalNamespace string
	NotifyTaskQueue   string
	SMTP              notify.SMTPConfig

	GoogleClientID     string
	GoogleClientSecret string

	OpenAIKey   string
	OpenAIModel string

	LogLevel string
	LogFile  string
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

// LoadConfig reads .env when present and then the process environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	c := &Config{
		Port:               env("PORT", "8080"),
		Env:                strings.ToLower(env("APP_ENV", "development")),
		BaseURL:            strings.TrimRight(env("BASE_URL", "http://localhost:8080"), "/"),
		DBDriver:           strings.ToLower(env("DB_DRIVER", "postgres")),
		SQLitePath:         env("SQLITE_PATH", "storefront.db"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		MetricsNS:          env("METRICS_NAMESPACE", "storefront"),
		StripeWHSec:        os.Getenv("STRIPE_WEBHOOK_SECRET"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		TemporalHost:       os.Getenv("TEMPORAL_HOST"),
		TemporalNamespace:  env("TEMPORAL_NAMESPACE", "default"),
		NotifyTaskQueue:    env("NOTIFY_TASK_QUEUE", notify.DefaultTaskQueue),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        os.Getenv("OPENAI_MODEL"),
		LogLevel:           env("LOG_LEVEL", "info"),
		LogFile:            os.Getenv("LOG_FILE"),
		SMTP: notify.SMTPConfig{
			Host: os.Getenv("SMTP_HOST"),
			Port: env("SMTP_PORT", "587"),
			User: os.Getenv("SMTP_USER"),
			Pass: os.Getenv("SMTP_PASS"),
			From: os.Getenv("SMTP_FROM"),
		},
	}
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		return nil, fmt.Errorf("DB_DRIVER: unsupported driver %q", c.DBDriver)
	}
	if c.DBDriver == "postgres" {
		c.DBDSN = postgresDSN()
	}

	ttl, err := time.ParseDuration(env("JWT_TTL", "24h"))
	if err != nil {
		return nil, fmt.Errorf("JWT_TTL: %w", err)
	}
	c.JWTTTL = ttl
	if c.RedisDB, err = envInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if c.BcryptCost, err = envInt("BCRYPT_COST", 0); err != nil {
		return nil, err
	}
	if c.RateLimit, err = envInt("RATE_LIMIT_PER_MINUTE", 300); err != nil {
		return nil, err
	}
	if c.BaseLabels, err = envInt("TENANT_BASE_DOMAIN_LABELS", 2); err != nil {
		return nil, err
	}

	if c.JWTSecret == "" {
		if c.Production() {
			return nil, fmt.Errorf("JWT_SECRET is required when APP_ENV=%s", c.Env)
		}
		c.JWTSecret = "dev-only-secret-change-me-0123456789"
	}
	return c, nil
}

// postgresDSN prefers DB_DSN and falls back to the discrete DB_* and
// POSTGRES_* variables.
func postgresDSN() string {
	if dsn := strings.TrimSpace(os.Getenv("DB_DSN")); dsn != "" {
		return dsn
	}
	user := env("DB_USER", env("POSTGRES_USER", "postgres"))
	pass := env("DB_PASSWORD", env("POSTGRES_PASSWORD", "postgres"))
	name := env("DB_NAME", env("POSTGRES_DB", "storefront"))
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		env("DB_HOST", "localhost"), user, pass, name, env("DB_PORT", "5432"), env("DB_SSLMODE", "disable"))
}

func (c *Config) Production() bool {
	return c.Env == "production" || c.Env == "prod"
}

func (c *Config) Addr() string { return ":" + c.Port }
