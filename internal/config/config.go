// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Env is the application environment ("local", "dev", "production").
	// Cookies carry the Secure attribute for every environment except local.
	Env string `mapstructure:"APP_ENV"`

	// JWTSecret is the shared HS256 signing secret for access tokens; must be at least 32 bytes.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTIssuer is the iss claim, also used as the aud claim (e.g. "estimate-api").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// AccessTokenTTL is the access token lifetime (e.g. "10m").
	AccessTokenTTL string `mapstructure:"ACCESS_TOKEN_TTL"`
	// IdleTimeout is the maximum gap between validated accesses before a session is abandoned (e.g. "120m").
	IdleTimeout string `mapstructure:"IDLE_TIMEOUT"`
	// SessionTTL is the absolute sliding TTL of the server-side session record (e.g. "336h" = 14 days).
	SessionTTL string `mapstructure:"SESSION_TTL"`

	// RedisAddr is the Redis host:port for session records; empty selects the in-memory store (local only).
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis AUTH password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// DatabaseURL is the Postgres DSN for the audit log; empty disables auditing.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// IdPTokenURL is the identity provider's token endpoint used by the refresh flow.
	IdPTokenURL string `mapstructure:"IDP_TOKEN_URL"`
	// IdPClientID is the OAuth2 client id registered with the identity provider.
	IdPClientID string `mapstructure:"IDP_CLIENT_ID"`
	// IdPClientSecret is the OAuth2 client secret registered with the identity provider.
	IdPClientSecret string `mapstructure:"IDP_CLIENT_SECRET"`
	// IdPTimeout bounds the identity provider round trip during refresh (e.g. "10s").
	IdPTimeout string `mapstructure:"IDP_TIMEOUT"`

	// S3Bucket is the bucket holding exported objects; empty disables the download endpoint.
	S3Bucket string `mapstructure:"S3_BUCKET"`
	// S3URLExpiry is the presigned URL lifetime; must be within 1m–15m (e.g. "5m").
	S3URLExpiry string `mapstructure:"S3_URL_EXPIRY"`
	// CSVObjectKey is the object key served by the CSV download endpoint.
	CSVObjectKey string `mapstructure:"CSV_OBJECT_KEY"`

	// DevLoginEnabled enables POST /auth/login with the fixed dev user; for local
	// verification without a real IdP. Must not be true when Env is production.
	DevLoginEnabled bool `mapstructure:"DEV_LOGIN_ENABLED"`
	// DevUsername is the fixed dev-login username.
	DevUsername string `mapstructure:"DEV_USERNAME"`
	// DevPasswordHash is the bcrypt hash of the fixed dev-login password.
	DevPasswordHash string `mapstructure:"DEV_PASSWORD_HASH"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables telemetry export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// ShutdownTimeout bounds graceful shutdown of in-flight requests (e.g. "30s").
	ShutdownTimeout string `mapstructure:"SHUTDOWN_TIMEOUT"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "local")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "estimate-api")
	v.SetDefault("ACCESS_TOKEN_TTL", "10m")
	v.SetDefault("IDLE_TIMEOUT", "120m")
	v.SetDefault("SESSION_TTL", "336h") // 14d
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("IDP_TOKEN_URL", "")
	v.SetDefault("IDP_CLIENT_ID", "")
	v.SetDefault("IDP_CLIENT_SECRET", "")
	v.SetDefault("IDP_TIMEOUT", "10s")
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_URL_EXPIRY", "5m")
	v.SetDefault("CSV_OBJECT_KEY", "exports/estimates.csv")
	v.SetDefault("DEV_LOGIN_ENABLED", false)
	v.SetDefault("DEV_USERNAME", "testuser")
	v.SetDefault("DEV_PASSWORD_HASH", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("SHUTDOWN_TIMEOUT", "30s")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("config: JWT_SECRET must be at least 32 bytes")
	}
	if cfg.DevLoginEnabled && cfg.Env == "production" {
		return nil, errors.New("config: DEV_LOGIN_ENABLED must not be true when APP_ENV=production")
	}
	if cfg.DevLoginEnabled && cfg.DevPasswordHash == "" {
		return nil, errors.New("config: DEV_PASSWORD_HASH must be set when DEV_LOGIN_ENABLED=true")
	}

	return &cfg, nil
}

// SecureCookies reports whether cookies carry the Secure attribute.
// Disabled only for the local environment, matching the deployment profiles.
func (c *Config) SecureCookies() bool {
	return !strings.EqualFold(c.Env, "local")
}

// DevEndpoints reports whether dev-only endpoints (sleep, dev login) may be registered.
func (c *Config) DevEndpoints() bool {
	env := strings.ToLower(c.Env)
	return env == "local" || env == "dev" || env == "development"
}

// AccessTTL parses AccessTokenTTL as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.AccessTokenTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// IdleTimeoutDuration parses IdleTimeout as a time.Duration. Returns 120m if unset or invalid.
func (c *Config) IdleTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.IdleTimeout)
	if err != nil || d <= 0 {
		return 120 * time.Minute
	}
	return d
}

// SessionTTLDuration parses SessionTTL as a time.Duration. Returns 14 days if unset or invalid.
func (c *Config) SessionTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 14 * 24 * time.Hour
	}
	return d
}

// IdPTimeoutDuration parses IdPTimeout as a time.Duration. Returns 10s if unset or invalid.
func (c *Config) IdPTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.IdPTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// S3URLExpiryDuration parses S3URLExpiry as a time.Duration. Returns 5m if unset or invalid.
func (c *Config) S3URLExpiryDuration() time.Duration {
	d, err := time.ParseDuration(c.S3URLExpiry)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// ShutdownTimeoutDuration parses ShutdownTimeout as a time.Duration. Returns 30s if unset or invalid.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
