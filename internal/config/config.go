package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	defaultAppName        = "SmartPay Wallet"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultAccessTTL      = 15 * time.Minute
	defaultRefreshTTL     = 7 * 24 * time.Hour
	defaultLoginRate      = 5
	defaultCurrency       = "USD"
	defaultWorkers        = 4
	defaultMaxAmount      = 1_000_000_000

	devJWTSecret     = "dev-access-secret"
	devRefreshSecret = "dev-refresh-secret"

	// SeedRandom draws opening balances uniformly from [SeedMin, SeedMax].
	SeedRandom = "random"
	// SeedFixed gives every wallet SeedFixed.
	SeedFixed = "fixed"
)

// amountScale matches the NUMERIC(20,2) journal columns.
const amountScale = 2

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	LogLevel string

	DatabaseURL string
	RedisURL    string

	JWTSecret       string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AdminUsernames  []string

	ShutdownPeriod     time.Duration
	IdempotencyTTL     time.Duration
	LoginRateLimitPerM int

	WalletCurrency       string
	WalletAutoProvision  bool
	SeedPolicy           string
	SeedMin              decimal.Decimal
	SeedMax              decimal.Decimal
	SeedFixedAmount      decimal.Decimal
	RecordFailedTransfer bool
	MaxAmount            decimal.Decimal
	WorkerPoolSize       int
}

// Load reads an optional .env file, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		AppName:             getEnv("APP_NAME", defaultAppName),
		AppEnv:              getEnv("APP_ENV", defaultAppEnv),
		Port:                getEnv("PORT", defaultPort),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		RefreshSecret:       os.Getenv("JWT_REFRESH_SECRET"),
		AdminUsernames:      splitList(os.Getenv("ADMIN_USERNAMES")),
		WalletCurrency:      strings.ToUpper(getEnv("WALLET_CURRENCY", defaultCurrency)),
		SeedPolicy:          strings.ToLower(getEnv("SEED_POLICY", SeedRandom)),
		WalletAutoProvision: true,
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", defaultAccessTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = durationEnv("REFRESH_TOKEN_TTL", defaultRefreshTTL); err != nil {
		return Config{}, err
	}
	if cfg.LoginRateLimitPerM, err = intEnv("LOGIN_RATE_LIMIT_PER_MIN", defaultLoginRate); err != nil {
		return Config{}, err
	}
	if cfg.WorkerPoolSize, err = intEnv("WORKER_POOL_SIZE", defaultWorkers); err != nil {
		return Config{}, err
	}
	if cfg.WalletAutoProvision, err = boolEnv("WALLET_AUTO_PROVISION", true); err != nil {
		return Config{}, err
	}
	if cfg.RecordFailedTransfer, err = boolEnv("RECORD_FAILED_TRANSACTIONS", false); err != nil {
		return Config{}, err
	}
	if cfg.SeedMin, err = decimalEnv("SEED_MIN", decimal.NewFromInt(1000)); err != nil {
		return Config{}, err
	}
	if cfg.SeedMax, err = decimalEnv("SEED_MAX", decimal.NewFromInt(10000)); err != nil {
		return Config{}, err
	}
	if cfg.SeedFixedAmount, err = decimalEnv("SEED_FIXED", decimal.NewFromInt(1000)); err != nil {
		return Config{}, err
	}
	if cfg.MaxAmount, err = decimalEnv("MAX_AMOUNT", decimal.NewFromInt(defaultMaxAmount)); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.SeedPolicy {
	case SeedRandom:
		if c.SeedMin.IsNegative() || c.SeedMax.LessThan(c.SeedMin) {
			return fmt.Errorf("invalid seed range [%s, %s]", c.SeedMin, c.SeedMax)
		}
	case SeedFixed:
		if c.SeedFixedAmount.IsNegative() {
			return fmt.Errorf("SEED_FIXED must not be negative")
		}
	default:
		return fmt.Errorf("unknown SEED_POLICY %q", c.SeedPolicy)
	}
	for name, v := range map[string]decimal.Decimal{
		"SEED_MIN": c.SeedMin, "SEED_MAX": c.SeedMax, "SEED_FIXED": c.SeedFixedAmount, "MAX_AMOUNT": c.MaxAmount,
	} {
		if v.Exponent() < -amountScale {
			return fmt.Errorf("%s must have at most %d decimal places", name, amountScale)
		}
	}
	if !c.MaxAmount.IsPositive() || c.MaxAmount.GreaterThanOrEqual(decimal.New(1, 18)) {
		return fmt.Errorf("MAX_AMOUNT must be positive and below 1e18")
	}
	if c.WorkerPoolSize <= 0 {
		return fmt.Errorf("WORKER_POOL_SIZE must be positive")
	}

	if c.IsDev() {
		if c.JWTSecret == "" {
			c.JWTSecret = devJWTSecret
		}
		if c.RefreshSecret == "" {
			c.RefreshSecret = devRefreshSecret
		}
		return nil
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", c.AppEnv)
	}
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", c.AppEnv)
	}
	if c.JWTSecret == "" || c.RefreshSecret == "" {
		return fmt.Errorf("JWT_SECRET and JWT_REFRESH_SECRET must be set when APP_ENV=%s", c.AppEnv)
	}
	return nil
}

// IsDev reports whether the service may run without Postgres and Redis.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationEnv reads KEY_SECONDS as an integer, else KEY as a Go duration.
func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_SECONDS: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func decimalEnv(key string, fallback decimal.Decimal) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
