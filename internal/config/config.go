package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "ZemWifi"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultAccessTTL      = 15 * time.Minute
	defaultRefreshTTL     = 30 * 24 * time.Hour
	defaultCashInTTL      = 15 * time.Minute
	defaultSweepInterval  = time.Minute
	defaultCashInPerMin   = 10
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName             string
	AppEnv              string
	Port                string
	LogLevel            string
	DatabaseURL         string
	RedisURL            string
	JWTSecret           string
	RefreshSecret       string
	AccessTokenTTL      time.Duration
	RefreshTokenTTL     time.Duration
	ShutdownPeriod      time.Duration
	IdempotencyTTL      time.Duration
	CashInTTL           time.Duration
	CashInSweepInterval time.Duration
	CashInPerMinute     int
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:             getEnv("APP_NAME", defaultAppName),
		AppEnv:              getEnv("APP_ENV", defaultAppEnv),
		Port:                getEnv("PORT", defaultPort),
		LogLevel:            strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		RedisURL:            os.Getenv("REDIS_URL"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		RefreshSecret:       os.Getenv("REFRESH_SECRET"),
		AccessTokenTTL:      defaultAccessTTL,
		RefreshTokenTTL:     defaultRefreshTTL,
		ShutdownPeriod:      defaultShutdownDelay,
		IdempotencyTTL:      defaultIdempotencyTTL,
		CashInTTL:           defaultCashInTTL,
		CashInSweepInterval: defaultSweepInterval,
		CashInPerMinute:     defaultCashInPerMin,
	}

	durations := []struct {
		envSeconds string
		envDur     string
		dst        *time.Duration
	}{
		{"SHUTDOWN_TIMEOUT_SECONDS", "SHUTDOWN_TIMEOUT", &cfg.ShutdownPeriod},
		{"IDEMPOTENCY_TTL_SECONDS", "IDEMPOTENCY_TTL", &cfg.IdempotencyTTL},
		{"ACCESS_TOKEN_TTL_SECONDS", "ACCESS_TOKEN_TTL", &cfg.AccessTokenTTL},
		{"REFRESH_TOKEN_TTL_SECONDS", "REFRESH_TOKEN_TTL", &cfg.RefreshTokenTTL},
		{"CASHIN_TTL_SECONDS", "CASHIN_TTL", &cfg.CashInTTL},
		{"CASHIN_SWEEP_INTERVAL_SECONDS", "CASHIN_SWEEP_INTERVAL", &cfg.CashInSweepInterval},
	}

	for _, d := range durations {
		if v := os.Getenv(d.envSeconds); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", d.envSeconds, err)
			}
			*d.dst = time.Duration(seconds) * time.Second
		} else if v := os.Getenv(d.envDur); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", d.envDur, err)
			}
			*d.dst = parsed
		}
	}

	if v := os.Getenv("CASHIN_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CASHIN_PER_MINUTE: %w", err)
		}
		cfg.CashInPerMinute = n
	}

	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-only-access-secret"
	}
	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = "dev-only-refresh-secret"
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if os.Getenv("JWT_SECRET") == "" || os.Getenv("REFRESH_SECRET") == "" {
			return Config{}, fmt.Errorf("JWT_SECRET and REFRESH_SECRET must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a development-style environment where
// in-memory backends are acceptable.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
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
