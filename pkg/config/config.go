package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	EnvPrefix = "coffeeworth"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Fees         FeesConfig
	Toss         TossConfig
	RateLimit    RateLimitConfig
	Idempotency  IdempotencyConfig
	Payout       PayoutConfig
	Reconciler   ReconcilerConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if _, err := cfg.Fees.Rates(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COFFEEWORTH_APP_ENV" required:"true"`
	Port         string `envconfig:"COFFEEWORTH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COFFEEWORTH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COFFEEWORTH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"COFFEEWORTH_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"COFFEEWORTH_DB_DSN"`
	Driver string `envconfig:"COFFEEWORTH_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"COFFEEWORTH_DB_HOST"`
	Port     int    `envconfig:"COFFEEWORTH_DB_PORT" default:"5432"`
	User     string `envconfig:"COFFEEWORTH_DB_USER"`
	Password string `envconfig:"COFFEEWORTH_DB_PASSWORD"`
	Name     string `envconfig:"COFFEEWORTH_DB_NAME"`
	SSLMode  string `envconfig:"COFFEEWORTH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COFFEEWORTH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COFFEEWORTH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COFFEEWORTH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COFFEEWORTH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COFFEEWORTH_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"COFFEEWORTH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COFFEEWORTH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COFFEEWORTH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COFFEEWORTH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COFFEEWORTH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"COFFEEWORTH_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"COFFEEWORTH_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"COFFEEWORTH_JWT_EXPIRATION_MINUTES" default:"1440"`
}

// FeesConfig carries the platform and payment-gateway fee rates. Rates are
// decimal strings so the calculator never goes through binary floats.
type FeesConfig struct {
	PlatformRate string `envconfig:"COFFEEWORTH_PLATFORM_FEE_RATE" default:"0.05"`
	PGRate       string `envconfig:"COFFEEWORTH_PG_FEE_RATE" default:"0.028"`
}

// FeeRates holds the parsed rate pair.
type FeeRates struct {
	Platform decimal.Decimal
	PG       decimal.Decimal
}

func (f FeesConfig) Rates() (FeeRates, error) {
	platform, err := decimal.NewFromString(strings.TrimSpace(f.PlatformRate))
	if err != nil {
		return FeeRates{}, fmt.Errorf("invalid platform fee rate %q: %w", f.PlatformRate, err)
	}
	pg, err := decimal.NewFromString(strings.TrimSpace(f.PGRate))
	if err != nil {
		return FeeRates{}, fmt.Errorf("invalid pg fee rate %q: %w", f.PGRate, err)
	}
	return FeeRates{Platform: platform, PG: pg}, nil
}

type TossConfig struct {
	SecretKey string        `envconfig:"COFFEEWORTH_TOSS_SECRET_KEY" required:"true"`
	BaseURL   string        `envconfig:"COFFEEWORTH_TOSS_BASE_URL" default:"https://api.tosspayments.com/v1/payments"`
	Timeout   time.Duration `envconfig:"COFFEEWORTH_TOSS_TIMEOUT" default:"15s"`
}

type RateLimitConfig struct {
	SupportWindow  time.Duration `envconfig:"COFFEEWORTH_RATE_LIMIT_SUPPORT_WINDOW" default:"1m"`
	SupportIPLimit int           `envconfig:"COFFEEWORTH_RATE_LIMIT_SUPPORT_IP_LIMIT" default:"10"`
	ConfirmWindow  time.Duration `envconfig:"COFFEEWORTH_RATE_LIMIT_CONFIRM_WINDOW" default:"1m"`
	ConfirmIPLimit int           `envconfig:"COFFEEWORTH_RATE_LIMIT_CONFIRM_IP_LIMIT" default:"20"`
}

// IdempotencyConfig sets how long stored request outcomes are replayable.
// Payment confirmations keep records for a week so late success-redirect
// retries still hit the cached result.
type IdempotencyConfig struct {
	SupportTTL time.Duration `envconfig:"COFFEEWORTH_IDEMPOTENCY_SUPPORT_TTL" default:"24h"`
	ConfirmTTL time.Duration `envconfig:"COFFEEWORTH_IDEMPOTENCY_CONFIRM_TTL" default:"168h"`
	PayoutTTL  time.Duration `envconfig:"COFFEEWORTH_IDEMPOTENCY_PAYOUT_TTL" default:"168h"`
}

type PayoutConfig struct {
	MinAmount int `envconfig:"COFFEEWORTH_PAYOUT_MIN_AMOUNT" default:"10000"`
}

type ReconcilerConfig struct {
	PollInterval time.Duration `envconfig:"COFFEEWORTH_RECONCILER_POLL_INTERVAL" default:"1m"`
	StaleAfter   time.Duration `envconfig:"COFFEEWORTH_RECONCILER_STALE_AFTER" default:"30m"`
	BatchSize    int           `envconfig:"COFFEEWORTH_RECONCILER_BATCH_SIZE" default:"50"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"COFFEEWORTH_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	required := map[string]string{
		"COFFEEWORTH_DB_HOST": db.Host,
		"COFFEEWORTH_DB_USER": db.User,
		"COFFEEWORTH_DB_NAME": db.Name,
	}
	for _, key := range []string{"COFFEEWORTH_DB_HOST", "COFFEEWORTH_DB_USER", "COFFEEWORTH_DB_NAME"} {
		if required[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either COFFEEWORTH_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
