package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config holds everything the server needs at startup.
type Config struct {
	Env          string
	Port         string
	LogLevel     string
	LogFormat    string
	JWTSecret    string
	SessionTTL   time.Duration
	StartingCash decimal.Decimal
	BcryptCost   int
	DB           DBConfig
	Redis        RedisConfig
	Quote        QuoteConfig
}

type DBConfig struct {
	Driver     string // postgres or sqlite
	Host       string
	User       string
	Password   string
	Name       string
	Port       string
	SSLMode    string
	SQLitePath string
	LogLevel   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type QuoteConfig struct {
	Provider      string // alphavantage, finnhub or static
	AlphaVantage  string
	Finnhub       string
	Timeout       time.Duration
	RateLimit     int
	CacheTTL      time.Duration
	StaticSymbols string // SYMBOL=price pairs for the static provider
}

// Default returns a Config with development defaults.
func Default() *Config {
	return &Config{
		Env:          "development",
		Port:         "8080",
		LogLevel:     "info",
		LogFormat:    "console",
		JWTSecret:    "dev-jwt-secret-change-in-production",
		SessionTTL:   24 * time.Hour,
		StartingCash: decimal.NewFromInt(10000),
		BcryptCost:   10,
		DB: DBConfig{
			Driver:     "postgres",
			Host:       "localhost",
			User:       "postgres",
			Name:       "finance",
			Port:       "5432",
			SSLMode:    "disable",
			SQLitePath: "finance.db",
			LogLevel:   "warn",
		},
		Redis: RedisConfig{
			Addr: "127.0.0.1:6379",
		},
		Quote: QuoteConfig{
			Provider:  "alphavantage",
			Timeout:   5 * time.Second,
			RateLimit: 5,
			CacheTTL:  5 * time.Minute,
		},
	}
}

// Load reads .env when present and applies environment overrides on top of
// the defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if cfg.IsProduction() && cfg.JWTSecret == Default().JWTSecret {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	str("APP_ENV", &cfg.Env)
	str("PORT", &cfg.Port)
	str("LOG_LEVEL", &cfg.LogLevel)
	str("LOG_FORMAT", &cfg.LogFormat)
	str("JWT_SECRET", &cfg.JWTSecret)

	str("DB_DRIVER", &cfg.DB.Driver)
	str("DB_HOST", &cfg.DB.Host)
	str("DB_USER", &cfg.DB.User)
	str("DB_PASSWORD", &cfg.DB.Password)
	str("DB_NAME", &cfg.DB.Name)
	str("DB_PORT", &cfg.DB.Port)
	str("DB_SSLMODE", &cfg.DB.SSLMode)
	str("SQLITE_PATH", &cfg.DB.SQLitePath)
	str("DB_LOG_LEVEL", &cfg.DB.LogLevel)

	str("REDIS_ADDR", &cfg.Redis.Addr)
	str("REDIS_PASSWORD", &cfg.Redis.Password)

	str("QUOTE_PROVIDER", &cfg.Quote.Provider)
	str("ALPHA_VANTAGE_API_KEY", &cfg.Quote.AlphaVantage)
	str("FINNHUB_API_KEY", &cfg.Quote.Finnhub)
	str("QUOTE_STATIC_SYMBOLS", &cfg.Quote.StaticSymbols)

	var err error
	if cfg.Redis.DB, err = intEnv("REDIS_DB", cfg.Redis.DB); err != nil {
		return err
	}
	if cfg.Quote.RateLimit, err = intEnv("QUOTE_RATE_LIMIT", cfg.Quote.RateLimit); err != nil {
		return err
	}
	if cfg.BcryptCost, err = intEnv("BCRYPT_COST", cfg.BcryptCost); err != nil {
		return err
	}
	if cfg.SessionTTL, err = durationEnv("SESSION_TTL", cfg.SessionTTL); err != nil {
		return err
	}
	if cfg.Quote.Timeout, err = durationEnv("QUOTE_TIMEOUT", cfg.Quote.Timeout); err != nil {
		return err
	}
	if cfg.Quote.CacheTTL, err = durationEnv("QUOTE_CACHE_TTL", cfg.Quote.CacheTTL); err != nil {
		return err
	}
	if v := os.Getenv("STARTING_CASH"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			return fmt.Errorf("invalid STARTING_CASH %q", v)
		}
		cfg.StartingCash = d
	}

	cfg.DB.Driver = strings.ToLower(cfg.DB.Driver)
	cfg.Quote.Provider = strings.ToLower(cfg.Quote.Provider)
	return nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Env))
	return env == "production" || env == "prod"
}

// DSN builds the postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.Host, c.User, c.Password, c.Name, c.Port, c.SSLMode)
}

// InitDB opens the configured database.
func InitDB(c DBConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch c.Driver {
	case "postgres":
		dialector = postgres.Open(c.DSN())
	case "sqlite":
		dialector = sqlite.Open(c.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", c.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(c.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the database: %w", err)
	}

	if c.Driver == "sqlite" {
		// sqlite allows one writer; a single connection keeps ledger
		// transactions from failing with SQLITE_BUSY.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent", "disabled", "off":
		return logger.Silent
	case "error":
		return logger.Error
	case "info", "debug":
		return logger.Info
	default:
		return logger.Warn
	}
}

// InitRedis connects to redis and verifies the connection.
func InitRedis(ctx context.Context, c RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}
