package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App      AppConfig
	Service  ServiceConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	HTTP     HTTPConfig
	Checkout CheckoutConfig
	Razorpay RazorpayConfig
	Reaper   ReaperConfig
	Eventing EventingConfig
	Outbox   OutboxConfig
	GCP      GCPConfig
	PubSub   PubSubConfig
	Kafka    KafkaConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Outbox.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WNW_APP_ENV" required:"true"`
	Port         string `envconfig:"WNW_APP_PORT" default:"3001"`
	LogLevel     string `envconfig:"WNW_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"WNW_LOG_FORMAT" default:"json"`
	LogNoColor   bool   `envconfig:"NO_COLOR" default:"false"`
	LogWarnStack bool   `envconfig:"WNW_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"WNW_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev) || strings.EqualFold(a.Env, "development")
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type ServiceConfig struct {
	Kind string `envconfig:"WNW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"WNW_DB_DSN"`

	LegacyHost     string `envconfig:"WNW_DB_HOST"`
	LegacyPort     int    `envconfig:"WNW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WNW_DB_USER"`
	LegacyPassword string `envconfig:"WNW_DB_PASSWORD"`
	LegacyName     string `envconfig:"WNW_DB_NAME"`
	LegacySSLMode  string `envconfig:"WNW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WNW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WNW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WNW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WNW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"WNW_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WNW_REDIS_URL" required:"true"`
	Namespace    string        `envconfig:"WNW_REDIS_NAMESPACE" default:"wnw"`
	Password     string        `envconfig:"WNW_REDIS_PASSWORD"`
	PoolSize     int           `envconfig:"WNW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WNW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WNW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WNW_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WNW_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"WNW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"WNW_JWT_ISSUER" default:"wix-and-wax"`
	ExpirationMinutes int    `envconfig:"WNW_JWT_EXPIRATION_MINUTES" default:"10080"`
}

// HTTPConfig covers the public surface of the API process.
type HTTPConfig struct {
	AllowedOrigins  string        `envconfig:"WNW_HTTP_ALLOWED_ORIGINS" default:"http://localhost:5173"`
	RateLimitWindow time.Duration `envconfig:"WNW_HTTP_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitPerIP  int           `envconfig:"WNW_HTTP_RATE_LIMIT_PER_IP" default:"30"`
	ShutdownTimeout time.Duration `envconfig:"WNW_HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

// OriginList splits the comma separated origin list.
func (h HTTPConfig) OriginList() []string {
	return splitList(h.AllowedOrigins)
}

// CheckoutConfig holds the pricing policy applied by the checkout pipeline.
type CheckoutConfig struct {
	TaxRate                string        `envconfig:"WNW_CHECKOUT_TAX_RATE" default:"0.18"`
	ShippingFlat           string        `envconfig:"WNW_CHECKOUT_SHIPPING_FLAT" default:"99"`
	Currency               string        `envconfig:"WNW_CHECKOUT_CURRENCY" default:"INR"`
	DiscountUsagePolicy    string        `envconfig:"WNW_CHECKOUT_DISCOUNT_USAGE_POLICY" default:"contributed"`
	FreeShippingZeroesShip bool          `envconfig:"WNW_CHECKOUT_FREE_SHIPPING_ZEROES_SHIPPING" default:"true"`
	CapDiscountAtSubtotal  bool          `envconfig:"WNW_CHECKOUT_CAP_DISCOUNT_AT_SUBTOTAL" default:"true"`
	OrderNumberMaxAttempts int           `envconfig:"WNW_CHECKOUT_ORDER_NUMBER_ATTEMPTS" default:"5"`
	IdempotencyTTL         time.Duration `envconfig:"WNW_CHECKOUT_IDEMPOTENCY_TTL" default:"24h"`
}

// TaxRateDecimal parses TaxRate; validate guarantees it is well formed after Load.
func (c CheckoutConfig) TaxRateDecimal() decimal.Decimal {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil {
		return decimal.RequireFromString(DefaultTaxRate)
	}
	return rate
}

// ShippingDecimal parses ShippingFlat.
func (c CheckoutConfig) ShippingDecimal() decimal.Decimal {
	amount, err := decimal.NewFromString(strings.TrimSpace(c.ShippingFlat))
	if err != nil {
		return decimal.RequireFromString(DefaultShippingFlat)
	}
	return amount
}

func (c CheckoutConfig) validate() error {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil {
		return fmt.Errorf("%s must be a decimal: %w", EnvCheckoutTaxRate, err)
	}
	if rate.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvCheckoutTaxRate)
	}
	shipping, err := decimal.NewFromString(strings.TrimSpace(c.ShippingFlat))
	if err != nil {
		return fmt.Errorf("%s must be a decimal: %w", EnvCheckoutShipping, err)
	}
	if shipping.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvCheckoutShipping)
	}
	switch strings.ToLower(strings.TrimSpace(c.DiscountUsagePolicy)) {
	case "contributed", "attached":
	default:
		return fmt.Errorf("%s must be contributed or attached", EnvCheckoutUsagePolicy)
	}
	return nil
}

type RazorpayConfig struct {
	KeyID         string        `envconfig:"WNW_RAZORPAY_KEY_ID"`
	KeySecret     string        `envconfig:"WNW_RAZORPAY_KEY_SECRET"`
	WebhookSecret string        `envconfig:"WNW_RAZORPAY_WEBHOOK_SECRET"`
	BaseURL       string        `envconfig:"WNW_RAZORPAY_BASE_URL" default:"https://api.razorpay.com"`
	Timeout       time.Duration `envconfig:"WNW_RAZORPAY_TIMEOUT" default:"10s"`
}

// Configured reports whether the gateway can create and verify payments.
func (r RazorpayConfig) Configured() bool {
	return strings.TrimSpace(r.KeyID) != "" && strings.TrimSpace(r.KeySecret) != ""
}

// ReaperConfig controls the sweep that releases stock held by unpaid orders.
type ReaperConfig struct {
	Enabled    bool          `envconfig:"WNW_REAPER_ENABLED" default:"true"`
	PaymentTTL time.Duration `envconfig:"WNW_ORDER_PAYMENT_TTL" default:"30m"`
	Interval   time.Duration `envconfig:"WNW_REAPER_INTERVAL" default:"1m"`
	BatchSize  int           `envconfig:"WNW_REAPER_BATCH_SIZE" default:"100"`
	LockTTL    time.Duration `envconfig:"WNW_REAPER_LOCK_TTL" default:"5m"`
}

type EventingConfig struct {
	WebhookDedupTTL time.Duration `envconfig:"WNW_EVENTING_WEBHOOK_DEDUP_TTL" default:"720h"`
}

type OutboxConfig struct {
	Sink             string `envconfig:"WNW_OUTBOX_SINK" default:"pubsub"`
	BatchSize        int    `envconfig:"WNW_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS   int    `envconfig:"WNW_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts      int    `envconfig:"WNW_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays    int    `envconfig:"WNW_OUTBOX_RETENTION_DAYS" default:"30"`
	DLQRetentionDays int    `envconfig:"WNW_OUTBOX_DLQ_RETENTION_DAYS" default:"90"`
}

func (o OutboxConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(o.Sink)) {
	case OutboxSinkPubSub, OutboxSinkKafka:
		return nil
	default:
		return fmt.Errorf("%s must be %s or %s", EnvOutboxSink, OutboxSinkPubSub, OutboxSinkKafka)
	}
}

type GCPConfig struct {
	ProjectID string `envconfig:"WNW_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic   string `envconfig:"WNW_PUBSUB_ORDERS_TOPIC" default:"wnw-orders"`
	PaymentsTopic string `envconfig:"WNW_PUBSUB_PAYMENTS_TOPIC" default:"wnw-payments"`
}

type KafkaConfig struct {
	Brokers       string `envconfig:"WNW_KAFKA_BROKERS"`
	OrdersTopic   string `envconfig:"WNW_KAFKA_ORDERS_TOPIC" default:"wnw.orders"`
	PaymentsTopic string `envconfig:"WNW_KAFKA_PAYMENTS_TOPIC" default:"wnw.payments"`
}

// BrokerList splits the comma separated broker list.
func (k KafkaConfig) BrokerList() []string {
	return splitList(k.Brokers)
}

func splitList(raw string) []string {
	out := []string{}
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
