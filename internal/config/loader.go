package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// secretEnv lists every env name accepted for a secret, canonical APP_* first.
var secretEnv = map[string][]string{
	"postgres.user":     {"APP_POSTGRES_USER", "POSTGRES_USER", "DB_USER"},
	"postgres.password": {"APP_POSTGRES_PASSWORD", "POSTGRES_PASSWORD", "DB_PASSWORD"},
	"postgres.db":       {"APP_POSTGRES_DB", "POSTGRES_DB", "DB_NAME"},
	"auth.jwt_secret":   {"APP_AUTH_JWT_SECRET", "JWT_SECRET"},
	"redis.password":    {"APP_REDIS_PASSWORD", "REDIS_PASSWORD"},
}

// Load reads YAML from path and applies APP_* environment overrides (dots become underscores).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("APP")
	v.AutomaticEnv()
	setDefaults(v)
	for key, names := range secretEnv {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	var config Config
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config file not found: %w", err)
	}
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks struct constraints plus the cross-section rules validator tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation error: %w", err)
	}
	if c.App.Storage == StoragePostgres {
		var missing []string
		if c.Postgres.User == "" {
			missing = append(missing, "postgres.user")
		}
		if c.Postgres.Password == "" {
			missing = append(missing, "postgres.password")
		}
		if c.Postgres.DBName == "" {
			missing = append(missing, "postgres.db")
		}
		if len(missing) > 0 {
			return errors.New("missing required settings: " + strings.Join(missing, ", "))
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Every key needs a default, otherwise AutomaticEnv never sees it during Unmarshal.
	v.SetDefault("app.name", "knowledge-hub")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.storage", StoragePostgres)
	v.SetDefault("app.shutdown_timeout", 10)
	v.SetDefault("app.auto_migrate", false)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 1)
	v.SetDefault("postgres.max_conn_lifetime", 3600)
	v.SetDefault("postgres.max_conn_idle_time", 300)
	v.SetDefault("postgres.health_check_period", 30)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 300)
	v.SetDefault("redis.dial_timeout", 5)

	v.SetDefault("paging.policy", "clamp")
	v.SetDefault("paging.default_per_page", 20)
	v.SetDefault("paging.max_per_page", 100)

	v.SetDefault("auth.issuer", "knowledge-hub")
	v.SetDefault("auth.token_ttl", 60)
	v.SetDefault("auth.refresh_ttl", 43200)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 100)
	v.SetDefault("rate_limit.burst", 20)
}
