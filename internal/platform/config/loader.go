package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// FileEnv names the optional YAML file layered between defaults and the environment.
const FileEnv = "KPI_CONFIG"

var envKeys = map[string]struct{}{
	"app_addr":              {},
	"database_url":          {},
	"db_max_conns":          {},
	"jwt_secret":            {},
	"admin_password":        {},
	"admin_password_hash":   {},
	"admin_session_ttl":     {},
	"app_env":               {},
	"log_level":             {},
	"run_migrations":        {},
	"migrations_dir":        {},
	"run_seed":              {},
	"max_body_bytes":        {},
	"rate_limit_per_minute": {},
	"metrics_enabled":       {},
	"eval_timeout":          {},
	"eval_concurrency":      {},
	"job_queue_size":        {},
}

// Load layers defaults, the optional YAML file named by KPI_CONFIG and the
// process environment, in increasing order of precedence.
func Load() (Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if path := os.Getenv(FileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load config env: %w", err)
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// envKey maps DATABASE_URL to database_url and drops unrelated variables.
func envKey(name string) string {
	key := strings.ToLower(name)
	if _, ok := envKeys[key]; !ok {
		return ""
	}
	return key
}
