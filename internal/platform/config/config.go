package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Addr               string        `koanf:"app_addr"`
	DatabaseURL        string        `koanf:"database_url"`
	DBMaxConns         int           `koanf:"db_max_conns"`
	JWTSecret          string        `koanf:"jwt_secret"`
	AdminPassword      string        `koanf:"admin_password"`
	AdminPasswordHash  string        `koanf:"admin_password_hash"`
	AdminSessionTTL    time.Duration `koanf:"admin_session_ttl"`
	Environment        string        `koanf:"app_env"`
	LogLevel           string        `koanf:"log_level"`
	RunMigrations      bool          `koanf:"run_migrations"`
	MigrationsDir      string        `koanf:"migrations_dir"`
	RunSeed            bool          `koanf:"run_seed"`
	MaxBodyBytes       int64         `koanf:"max_body_bytes"`
	RateLimitPerMinute int           `koanf:"rate_limit_per_minute"`
	MetricsEnabled     bool          `koanf:"metrics_enabled"`
	EvalTimeout        time.Duration `koanf:"eval_timeout"`
	EvalConcurrency    int           `koanf:"eval_concurrency"`
	JobQueueSize       int           `koanf:"job_queue_size"`
}

// Default returns the configuration used when neither a file nor the
// environment overrides a value.
func Default() Config {
	return Config{
		Addr:               ":8080",
		DBMaxConns:         10,
		AdminSessionTTL:    8 * time.Hour,
		Environment:        "development",
		LogLevel:           "info",
		RunMigrations:      true,
		MigrationsDir:      "migrations",
		RunSeed:            false,
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 60,
		MetricsEnabled:     true,
		EvalTimeout:        5 * time.Second,
		EvalConcurrency:    4,
		JobQueueSize:       16,
	}
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.AdminPassword) == "" && strings.TrimSpace(c.AdminPasswordHash) == "" {
		return fmt.Errorf("ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required")
	}
	if c.IsProduction() {
		if len(strings.TrimSpace(c.JWTSecret)) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
		if strings.TrimSpace(c.AdminPasswordHash) == "" {
			return fmt.Errorf("ADMIN_PASSWORD_HASH must be used instead of ADMIN_PASSWORD in production")
		}
		if c.RunSeed {
			return fmt.Errorf("RUN_SEED must be disabled in production")
		}
	} else if strings.TrimSpace(c.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.EvalTimeout <= 0 {
		return fmt.Errorf("EVAL_TIMEOUT must be positive")
	}
	if c.EvalConcurrency <= 0 {
		return fmt.Errorf("EVAL_CONCURRENCY must be positive")
	}
	if c.JobQueueSize <= 0 {
		return fmt.Errorf("JOB_QUEUE_SIZE must be positive")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	return nil
}
