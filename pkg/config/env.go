package config

// EnvPrefix is empty because every field carries its full WNW_* name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	OutboxSinkPubSub = "pubsub"
	OutboxSinkKafka  = "kafka"

	DefaultTaxRate      = "0.18"
	DefaultShippingFlat = "99"
	DefaultCurrency     = "INR"
)

const (
	EnvAppEnv   = "WNW_APP_ENV"
	EnvPort     = "WNW_APP_PORT"
	EnvLogLevel = "WNW_LOG_LEVEL"

	EnvDBDSN  = "WNW_DB_DSN"
	EnvDBHost = "WNW_DB_HOST"
	EnvDBUser = "WNW_DB_USER"
	EnvDBName = "WNW_DB_NAME"

	EnvRedisURL  = "WNW_REDIS_URL"
	EnvJWTSecret = "WNW_JWT_SECRET"

	EnvCheckoutTaxRate     = "WNW_CHECKOUT_TAX_RATE"
	EnvCheckoutShipping    = "WNW_CHECKOUT_SHIPPING_FLAT"
	EnvCheckoutUsagePolicy = "WNW_CHECKOUT_DISCOUNT_USAGE_POLICY"

	EnvRazorpayKeyID     = "WNW_RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret = "WNW_RAZORPAY_KEY_SECRET"

	EnvOrderPaymentTTL = "WNW_ORDER_PAYMENT_TTL"
	EnvOutboxSink      = "WNW_OUTBOX_SINK"
	EnvKafkaBrokers    = "WNW_KAFKA_BROKERS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
