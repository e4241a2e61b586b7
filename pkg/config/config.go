package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "STOREFRONT"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	EnvDBDSN  = "STOREFRONT_DB_DSN"
	EnvDBHost = "STOREFRONT_DB_HOST"
	EnvDBUser = "STOREFRONT_DB_USER"
	EnvDBName = "STOREFRONT_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	Stripe     StripeConfig
	Checkout   CheckoutConfig
	Automation AutomationConfig
	Inventory  InventoryConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOREFRONT_DB_HOST"`
	LegacyPort     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOREFRONT_DB_USER"`
	LegacyPassword string `envconfig:"STOREFRONT_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOREFRONT_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	APIKey        string        `envconfig:"STOREFRONT_STRIPE_API_KEY"`
	WebhookSecret string        `envconfig:"STOREFRONT_STRIPE_WEBHOOK_SECRET"`
	Env           string        `envconfig:"STOREFRONT_STRIPE_ENV" default:"test"`
	EventTTL      time.Duration `envconfig:"STOREFRONT_STRIPE_EVENT_TTL" default:"72h"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type CheckoutConfig struct {
	MinChargeCents          int64  `envconfig:"STOREFRONT_CHECKOUT_MIN_CHARGE_CENTS" default:"50"`
	StandardShippingCents   int64  `envconfig:"STOREFRONT_CHECKOUT_STANDARD_SHIPPING_CENTS" default:"0"`
	ExpressShippingCents    int64  `envconfig:"STOREFRONT_CHECKOUT_EXPRESS_SHIPPING_CENTS" default:"2500"`
	MetadataChunkSize       int    `envconfig:"STOREFRONT_CHECKOUT_METADATA_CHUNK_SIZE" default:"500"`
	DevFallbackPriceCents   int64  `envconfig:"STOREFRONT_CHECKOUT_DEV_FALLBACK_PRICE_CENTS" default:"1999"`
	DefaultCurrency         string `envconfig:"STOREFRONT_CHECKOUT_DEFAULT_CURRENCY" default:"usd"`
	SupportedCurrenciesCSV  string `envconfig:"STOREFRONT_CHECKOUT_SUPPORTED_CURRENCIES" default:"USD,EUR,GBP,CAD,AUD"`
}

// SupportedCurrencies returns the normalized allow-list of currency codes.
func (c CheckoutConfig) SupportedCurrencies() []string {
	parts := strings.Split(c.SupportedCurrenciesCSV, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

type AutomationConfig struct {
	SharedSecret   string        `envconfig:"STOREFRONT_AUTOMATION_SHARED_SECRET"`
	NotifyURL      string        `envconfig:"STOREFRONT_AUTOMATION_NOTIFY_URL"`
	NotifyTimeout  time.Duration `envconfig:"STOREFRONT_AUTOMATION_NOTIFY_TIMEOUT" default:"10s"`
	DeductGuardTTL time.Duration `envconfig:"STOREFRONT_AUTOMATION_DEDUCT_GUARD_TTL" default:"168h"`
}

type InventoryConfig struct {
	MaxAttempts       uint64        `envconfig:"STOREFRONT_INVENTORY_MAX_ATTEMPTS" default:"3"`
	BackoffBase       time.Duration `envconfig:"STOREFRONT_INVENTORY_BACKOFF_BASE" default:"100ms"`
	LowStockThreshold int           `envconfig:"STOREFRONT_INVENTORY_LOW_STOCK_THRESHOLD" default:"5"`
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
