package config

// EnvPrefix is empty because every field spells out its full variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	AccountStoreFirestore = "firestore"
	AccountStorePostgres  = "postgres"
	AccountStoreSQLite    = "sqlite"
	AccountStoreMemory    = "memory"
)

const (
	EnvAppEnv        = "APP_ENV"
	EnvPort          = "APP_PORT"
	EnvLogLevel      = "LOG_LEVEL"
	EnvDefaultOrigin = "APP_DEFAULT_ORIGIN"
	EnvCORSOrigins   = "APP_CORS_ORIGINS"

	EnvStripeSecretKey     = "STRIPE_SECRET_KEY"
	EnvStripeWebhookSecret = "STRIPE_WEBHOOK_SECRET"
	EnvStripePriceID       = "STRIPE_PRICE_ID"
	EnvStripeEnv           = "STRIPE_ENV"

	EnvFirebaseProjectID   = "FIREBASE_PROJECT_ID"
	EnvFirebaseClientEmail = "FIREBASE_CLIENT_EMAIL"
	EnvFirebasePrivateKey  = "FIREBASE_PRIVATE_KEY"

	EnvAccountStore        = "ACCOUNT_STORE"
	EnvDBDSN               = "DB_DSN"
	EnvRedisURL            = "REDIS_URL"
	EnvCheckoutReuseWindow = "CHECKOUT_REUSE_WINDOW"

	EnvPubSubProjectID    = "PUBSUB_PROJECT_ID"
	EnvPubSubBillingTopic = "PUBSUB_BILLING_TOPIC"
)
