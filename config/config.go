// Package config loads the service configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// DefaultPath is the dotenv file Load reads when it exists.
const DefaultPath = ".env"

// Config holds every setting of the service.
type Config struct {
	AppEnv     string `env:"APP_ENV" env-default:"development"`
	AppName    string `env:"APP_NAME" env-default:"Billetera API"`
	AppVersion string `env:"APP_VERSION" env-default:"0.1.0"`
	HTTPAddr   string `env:"HTTP_ADDR" env-default:":8000" validate:"required"`
	APIPrefix  string `env:"API_V1_PREFIX" env-default:"/api/v1" validate:"required,startswith=/"`

	LogLevel   string `env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	LogBackend string `env:"LOG_BACKEND" env-default:"zap" validate:"oneof=zap zerolog logrus"`

	SupabaseURL            string `env:"SUPABASE_URL" env-required:"true" validate:"required,url"`
	SupabaseAnonKey        Secret `env:"SUPABASE_ANON_KEY" env-required:"true" validate:"required"`
	SupabaseServiceRoleKey Secret `env:"SUPABASE_SERVICE_ROLE_KEY"`
	JWTIssuer              string `env:"SUPABASE_JWT_ISSUER" validate:"omitempty,url"`
	JWTAudience            string `env:"SUPABASE_JWT_AUDIENCE" env-default:"authenticated"`

	RequestTimeoutSeconds int           `env:"REQUEST_TIMEOUT_SECONDS" env-default:"20" validate:"gt=0"`
	JWKSCacheTTLSeconds   int           `env:"JWKS_CACHE_TTL_SECONDS" env-default:"300" validate:"gt=0"`
	ForcedRefreshInterval time.Duration `env:"JWKS_FORCED_REFRESH_INTERVAL" env-default:"10s" validate:"gte=0"`

	RedisURL            string `env:"REDIS_URL"`
	ForcedRefreshBudget int64  `env:"JWKS_FORCED_REFRESH_BUDGET" env-default:"30" validate:"gt=0"`

	MetricsEnabled bool `env:"METRICS_ENABLED" env-default:"true"`
	TracingEnabled bool `env:"TRACING_ENABLED" env-default:"false"`
}

// Load exports the variables of the dotenv file at path, when it exists, and
// then reads the process environment. Variables already set in the process
// win over the file.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and the shape of SupabaseURL.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+" ("+fe.Tag()+")")
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	u, err := url.Parse(c.SupabaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid configuration: SupabaseURL must be an http(s) URL, got %q", c.SupabaseURL)
	}
	return nil
}

// BaseURL returns SupabaseURL without a trailing slash.
func (c *Config) BaseURL() string {
	return strings.TrimRight(c.SupabaseURL, "/")
}

// Issuer returns the expected token issuer, derived from the project URL
// when SUPABASE_JWT_ISSUER is unset.
func (c *Config) Issuer() string {
	if c.JWTIssuer != "" {
		return c.JWTIssuer
	}
	return c.BaseURL() + "/auth/v1"
}

// RequestTimeout is the timeout applied to every outbound call.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// JWKSCacheTTL is how long a fetched key set is served before it expires.
func (c *Config) JWKSCacheTTL() time.Duration {
	return time.Duration(c.JWKSCacheTTLSeconds) * time.Second
}

// IsProduction reports whether AppEnv names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}
