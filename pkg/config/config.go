package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	Stripe   StripeConfig
	Firebase FirebaseConfig
	Accounts AccountsConfig
	DB       DBConfig
	Redis    RedisConfig
	PubSub   PubSubConfig
	Metrics  MetricsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Accounts.validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.PubSub.ProjectID) == "" {
		cfg.PubSub.ProjectID = cfg.Firebase.ProjectID
	}
	return &cfg, nil
}

type AppConfig struct {
	Env           string   `envconfig:"APP_ENV" default:"dev"`
	Port          string   `envconfig:"APP_PORT" default:"3000"`
	LogLevel      string   `envconfig:"LOG_LEVEL" default:"info"`
	LogWarnStack  bool     `envconfig:"LOG_WARN_STACK" default:"false"`
	DefaultOrigin string   `envconfig:"APP_DEFAULT_ORIGIN" default:"http://localhost:3000"`
	CORSOrigins   []string `envconfig:"APP_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type StripeConfig struct {
	SecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
	WebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
	PriceID       string `envconfig:"STRIPE_PRICE_ID"`
	Env           string `envconfig:"STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type FirebaseConfig struct {
	ProjectID   string `envconfig:"FIREBASE_PROJECT_ID"`
	ClientEmail string `envconfig:"FIREBASE_CLIENT_EMAIL"`
	PrivateKey  string `envconfig:"FIREBASE_PRIVATE_KEY"`
	Collection  string `envconfig:"FIREBASE_USERS_COLLECTION" default:"users"`
}

// NormalizedPrivateKey restores newlines that were escaped to fit the key in a single env var.
func (f FirebaseConfig) NormalizedPrivateKey() string {
	return strings.ReplaceAll(f.PrivateKey, `\n`, "\n")
}

type AccountsConfig struct {
	Driver string `envconfig:"ACCOUNT_STORE" default:"firestore"`
}

func (a AccountsConfig) validate() error {
	switch a.Kind() {
	case AccountStoreFirestore, AccountStorePostgres, AccountStoreSQLite, AccountStoreMemory:
		return nil
	default:
		return fmt.Errorf("%s must be one of %s, %s, %s, %s", EnvAccountStore,
			AccountStoreFirestore, AccountStorePostgres, AccountStoreSQLite, AccountStoreMemory)
	}
}

// Kind returns the lower-cased account store driver name.
func (a AccountsConfig) Kind() string {
	return strings.TrimSpace(strings.ToLower(a.Driver))
}

type DBConfig struct {
	DSN             string        `envconfig:"DB_DSN"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"1h"`
	AutoMigrate     bool          `envconfig:"DB_AUTO_MIGRATE" default:"true"`
}

type RedisConfig struct {
	URL                 string        `envconfig:"REDIS_URL"`
	CheckoutReuseWindow time.Duration `envconfig:"CHECKOUT_REUSE_WINDOW" default:"10s"`
	DialTimeout         time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout         time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"2s"`
}

// Enabled reports whether a Redis connection should be established.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != ""
}

type PubSubConfig struct {
	ProjectID    string `envconfig:"PUBSUB_PROJECT_ID"`
	BillingTopic string `envconfig:"PUBSUB_BILLING_TOPIC"`
}

// Enabled reports whether billing status changes should be published.
func (p PubSubConfig) Enabled() bool {
	return strings.TrimSpace(p.BillingTopic) != ""
}

type MetricsConfig struct {
	Enabled bool `envconfig:"METRICS_ENABLED" default:"true"`
}
