package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/hollandstar/sportteams/pkg/httpx"
)

// ErrConfiguration is returned when the environment cannot produce a usable
// configuration. Startup fails on it.
var ErrConfiguration = errors.New("invalid configuration")

type Config struct {
	Issuer        string        `env:"AUTH_ISSUER"              envDefault:"http://localhost:8080"`
	SigningKey    string        `env:"AUTH_SIGNING_KEY"` // base64, at least 32 bytes
	EncryptionKey string        `env:"AUTH_ENCRYPTION_KEY"` // base64, exactly 32 bytes
	Pepper        string        `env:"AUTH_PASSWORD_PEPPER"`
	AccessTTL     time.Duration `env:"AUTH_ACCESS_TTL"          envDefault:"1h"`
	RefreshTTL    time.Duration `env:"AUTH_REFRESH_TTL"         envDefault:"720h"`
	ReplayWindow  time.Duration `env:"AUTH_REPLAY_WINDOW"       envDefault:"60s"`
	StrictReplay  bool          `env:"AUTH_STRICT_REPLAY"       envDefault:"false"`
	ContextTTL    time.Duration `env:"AUTH_CONTEXT_CACHE_TTL"   envDefault:"5m"`
	PersistTTL    time.Duration `env:"AUTH_CONTEXT_PERSIST_TTL" envDefault:"8h"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"` // sqlite, postgres
	DatabaseURL    string `env:"DATABASE_URL"    envDefault:"auth.db"`
	CacheDriver    string `env:"CACHE_DRIVER"    envDefault:"memory"` // memory, redis
	RedisURL       string `env:"REDIS_URL"`

	RateLimitMode   string        `env:"RATELIMIT_MODE"   envDefault:"fixed"` // fixed, token_bucket
	RateLimitWindow time.Duration `env:"RATELIMIT_WINDOW" envDefault:"60s"`

	// Peers allowed to set X-Forwarded-For and X-Real-IP, as addresses or
	// CIDR ranges. Empty means the socket address is the client.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	Env                  string        `env:"ENV"                   envDefault:"dev"` // dev, staging, prod
	LogLevel             string        `env:"LOG_LEVEL"             envDefault:"info"`
	LogFormat            string        `env:"LOG_FORMAT"            envDefault:"json"`
	Port                 int           `env:"PORT"                  envDefault:"8080"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`

	MetricsEnabled  bool   `env:"METRICS_ENABLED"  envDefault:"true"`
	TracingExporter string `env:"TRACING_EXPORTER" envDefault:"none"` // none, stdout
}

// LoadConfig reads the configuration from the environment and validates it.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) IsProd() bool { return strings.EqualFold(c.Env, "prod") }

// ProxyTrust parses TrustedProxies.
func (c Config) ProxyTrust() (httpx.ProxyTrust, error) {
	return httpx.ParseProxyTrust(c.TrustedProxies)
}

// Validate checks enumerations and, in production, the presence of key
// material. Key contents are checked when the keys are decoded.
func (c Config) Validate() error {
	var errs []error

	if c.Issuer == "" {
		errs = append(errs, errors.New("AUTH_ISSUER must not be empty"))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver))
	}
	switch c.CacheDriver {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required when CACHE_DRIVER=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_DRIVER %q", c.CacheDriver))
	}
	switch c.RateLimitMode {
	case "fixed", "token_bucket":
	default:
		errs = append(errs, fmt.Errorf("unknown RATELIMIT_MODE %q", c.RateLimitMode))
	}
	if _, err := c.ProxyTrust(); err != nil {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}
	switch c.TracingExporter {
	case "none", "stdout":
	default:
		errs = append(errs, fmt.Errorf("unknown TRACING_EXPORTER %q", c.TracingExporter))
	}

	if c.IsProd() {
		if c.SigningKey == "" {
			errs = append(errs, errors.New("AUTH_SIGNING_KEY is required in prod"))
		}
		if c.EncryptionKey == "" {
			errs = append(errs, errors.New("AUTH_ENCRYPTION_KEY is required in prod"))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	return nil
}
