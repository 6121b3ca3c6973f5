package config

import (
	"time"

	"github.com/maxviazov/knowledge-hub/internal/logger"
	"github.com/maxviazov/knowledge-hub/internal/paging"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	App       AppConfig           `mapstructure:"app"`
	Logger    logger.LoggerConfig `mapstructure:"logger" validate:"-"` // validated by logger.New
	Postgres  PostgresConfig      `mapstructure:"postgres"`
	Redis     RedisConfig         `mapstructure:"redis"`
	Paging    PagingConfig        `mapstructure:"paging"`
	Auth      AuthConfig          `mapstructure:"auth"`
	RateLimit RateLimitConfig     `mapstructure:"rate_limit"`
}

type AppConfig struct {
	Name            string `mapstructure:"name"`
	Version         string `mapstructure:"version"`
	Env             string `mapstructure:"env"`
	Port            int    `mapstructure:"port" validate:"gte=1,lte=65535"`
	Storage         string `mapstructure:"storage" validate:"oneof=postgres memory"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" validate:"gte=1"` // seconds
	AutoMigrate     bool   `mapstructure:"auto_migrate"`
}

// PostgresConfig holds pool tuning. Durations are seconds to keep YAML and env overrides flat.
type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	User              string `mapstructure:"user"`
	Password          string `mapstructure:"password"`
	DBName            string `mapstructure:"db"`
	SSLMode           string `mapstructure:"sslmode"`
	MaxConns          int32  `mapstructure:"max_conns"`
	MinConns          int32  `mapstructure:"min_conns"`
	MaxConnLifetime   int    `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   int    `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod int    `mapstructure:"health_check_period"`
}

// RedisConfig enables the response cache when Addr is set.
type RedisConfig struct {
	Addr        string `mapstructure:"addr"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	TTL         int    `mapstructure:"ttl"` // seconds
	DialTimeout int    `mapstructure:"dial_timeout"`
}

func (r RedisConfig) Enabled() bool { return r.Addr != "" }

func (r RedisConfig) CacheTTL() time.Duration { return time.Duration(r.TTL) * time.Second }

// PagingConfig sets the REST list policy and bounds.
type PagingConfig struct {
	Policy         string `mapstructure:"policy" validate:"oneof=clamp strict"`
	DefaultPerPage int    `mapstructure:"default_per_page" validate:"gte=1"`
	MaxPerPage     int    `mapstructure:"max_per_page" validate:"gte=1,gtefield=DefaultPerPage"`
}

func (p PagingConfig) Limits() paging.Limits {
	return paging.Limits{DefaultPerPage: p.DefaultPerPage, MaxPerPage: p.MaxPerPage}
}

type AuthConfig struct {
	JWTSecret  string `mapstructure:"jwt_secret" validate:"required,min=16"`
	Issuer     string `mapstructure:"issuer"`
	TokenTTL   int    `mapstructure:"token_ttl" validate:"gte=1"`   // minutes
	RefreshTTL int    `mapstructure:"refresh_ttl" validate:"gte=0"` // minutes, 0 means 30 days
}

func (a AuthConfig) TTL() time.Duration { return time.Duration(a.TokenTTL) * time.Minute }

func (a AuthConfig) RefreshTTLDuration() time.Duration {
	return time.Duration(a.RefreshTTL) * time.Minute
}

// RateLimitConfig drives the per-client token bucket on the API group.
// An enabled limiter needs a positive rate; a zero rate would never refill the bucket.
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerMinute float64 `mapstructure:"requests_per_minute" validate:"required_if=Enabled true,gte=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=0"`
}
