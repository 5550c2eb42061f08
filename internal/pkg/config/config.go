// Package config loads process configuration from the environment once at
// startup. The returned Config is treated as read-only.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/orderdesk/orderdesk/internal/core/service"
)

const minSigningKeyLength = service.MinSigningKeyLength

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	HubPort  string `env:"HUB_PORT,  default=5000"`
	Env      string `env:"ENV,       default=production"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	// LogPretty switches to zerolog's console writer.
	LogPretty bool `env:"LOG_PRETTY, default=false"`

	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS, default=http://localhost:5001,http://localhost:7071"`
	AuthzPolicy    string   `env:"AUTHZ_POLICY,         default=strict"`
	Store          string   `env:"STORE,                default=mongo"`
	SeedData       bool     `env:"SEED_DATA,            default=true"`

	JWT    JWTConfig
	Hub    HubConfig
	Notify NotifyConfig
	Mongo  MongoConfig
	Redis  RedisConfig
}

type JWTConfig struct {
	SigningKey      string `env:"JWT_SIGNING_KEY"`
	Issuer          string `env:"JWT_ISSUER"`
	Audience        string `env:"JWT_AUDIENCE"`
	LifetimeMinutes int    `env:"JWT_TOKEN_LIFETIME_MINUTES, default=60"`

	// SkipValidation trusts an upstream gateway to have verified tokens.
	SkipValidation bool `env:"AUTH_SKIP_VALIDATION, default=false"`
}

type HubConfig struct {
	URL            string `env:"HUB_URL,              default=http://localhost:5000"`
	InternalAPIKey string `env:"HUB_INTERNAL_API_KEY"`
	RequireAuth    bool   `env:"HUB_REQUIRE_AUTH,     default=false"`
}

type NotifyConfig struct {
	Mode      string        `env:"NOTIFY_MODE,       default=hub"`
	Workers   int           `env:"NOTIFY_WORKERS,    default=4"`
	RetryBase time.Duration `env:"NOTIFY_RETRY_BASE, default=1s"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=orderdesk"`
}

type RedisConfig struct {
	// Addr empty disables broadcast dedup.
	Addr string `env:"REDIS_ADDR"`
	DB   int    `env:"REDIS_DB, default=0"`
}

var (
	authzPolicies = []string{"strict", "owner", "authenticated"}
	notifyModes   = []string{"hub", "log", "none"}
	stores        = []string{"mongo", "memory"}
)

// Load reads configuration from the process environment.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through l and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: process environment: %w", err)
	}
	cfg.AuthzPolicy = strings.ToLower(strings.TrimSpace(cfg.AuthzPolicy))
	cfg.Notify.Mode = strings.ToLower(strings.TrimSpace(cfg.Notify.Mode))
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every fail-fast violation at once.
func (c *Config) Validate() error {
	var errs []error
	if len(c.JWT.SigningKey) < minSigningKeyLength {
		errs = append(errs, fmt.Errorf("JWT_SIGNING_KEY must be at least %d characters", minSigningKeyLength))
	}
	if c.JWT.Issuer == "" {
		errs = append(errs, errors.New("JWT_ISSUER is required"))
	}
	if c.JWT.Audience == "" {
		errs = append(errs, errors.New("JWT_AUDIENCE is required"))
	}
	if c.JWT.LifetimeMinutes <= 0 {
		errs = append(errs, errors.New("JWT_TOKEN_LIFETIME_MINUTES must be positive"))
	}
	if !oneOf(c.AuthzPolicy, authzPolicies) {
		errs = append(errs, fmt.Errorf("AUTHZ_POLICY must be one of %s", strings.Join(authzPolicies, ", ")))
	}
	if !oneOf(c.Notify.Mode, notifyModes) {
		errs = append(errs, fmt.Errorf("NOTIFY_MODE must be one of %s", strings.Join(notifyModes, ", ")))
	}
	if c.Notify.Workers <= 0 {
		errs = append(errs, errors.New("NOTIFY_WORKERS must be positive"))
	}
	if c.Notify.RetryBase <= 0 {
		errs = append(errs, errors.New("NOTIFY_RETRY_BASE must be positive"))
	}
	if !oneOf(c.Store, stores) {
		errs = append(errs, fmt.Errorf("STORE must be one of %s", strings.Join(stores, ", ")))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// IsDevelopment reports whether internal error details may be shown to callers.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// TokenConfig returns the token service settings.
func (c *Config) TokenConfig() service.TokenConfig {
	return service.TokenConfig{
		SigningKey:     c.JWT.SigningKey,
		Issuer:         c.JWT.Issuer,
		Audience:       c.JWT.Audience,
		Lifetime:       time.Duration(c.JWT.LifetimeMinutes) * time.Minute,
		SkipValidation: c.JWT.SkipValidation,
	}
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
