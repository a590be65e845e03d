package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/joho/godotenv"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (KKTC_ prefix) or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `env:"DATABASE_URL" usage:"PostgreSQL connection URL (KKTC_DATABASE_URL or DATABASE_URL)"`
	RedisURL     string `env:"REDIS_URL" default:"redis://localhost:6379/0" usage:"Redis URL for pending checkouts (KKTC_REDIS_URL or REDIS_URL)"`
	ImageBaseURL string `env:"IMAGE_BASE_URL" default:"" usage:"Base URL for product images (e.g. https://cdn.example.com/images)"`
	SecureCookie bool   `default:"true" usage:"Mark the cart session cookie Secure"`
	Auth         AuthConfig
	Checkout     CheckoutConfig
	Kafka        KafkaConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// AuthConfig configures access token verification.
type AuthConfig struct {
	JWTSecret string `env:"JWT_SECRET" usage:"HMAC secret shared with the auth service (KKTC_AUTH_JWT_SECRET)"`
	Issuer    string `default:"" usage:"Expected token issuer"`
	Audience  string `default:"" usage:"Expected token audience"`
}

// CheckoutConfig controls the checkout flow.
type CheckoutConfig struct {
	SignupURL  string        `env:"SIGNUP_URL" default:"/signup" usage:"Where guests are sent to sign up before checkout"`
	PendingTTL time.Duration `env:"PENDING_TTL" default:"168h" usage:"Lifetime of a guest's stashed checkout"`
	SessionTTL time.Duration `env:"SESSION_TTL" default:"720h" usage:"Lifetime of the cart session cookie"`
}

// KafkaConfig enables order events. Publishing is off when Brokers is empty.
type KafkaConfig struct {
	Brokers []string `usage:"Kafka brokers for order events"`
	Topic   string   `default:"kktc.orders" usage:"Topic for order events"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `usage:"Allowed CORS origins"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration"`
}

// LoadConfig loads configuration from an optional .env file, environment
// variables and YAML config files, then applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "load .env")
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:        "KKTC",
		SkipFlags:        true,
		AllowUnknownEnvs: true,
		Files:            []string{"config.yaml", "/etc/kktc/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set KKTC_DATABASE_URL or DATABASE_URL")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT secret is required: set KKTC_AUTH_JWT_SECRET")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's KKTC_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if v := os.Getenv("REDIS_URL"); v != "" && os.Getenv("KKTC_REDIS_URL") == "" {
		c.RedisURL = v
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
	c.Kafka.Brokers = compact(c.Kafka.Brokers)
	c.CORS.Origins = compact(c.CORS.Origins)
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
