package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Quota         QuotaConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Stripe        StripeConfig
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
	Env          string `envconfig:"BLOCKWATCH_APP_ENV" required:"true"`
	Port         string `envconfig:"BLOCKWATCH_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BLOCKWATCH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BLOCKWATCH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BLOCKWATCH_DB_DSN"`
	Driver string `envconfig:"BLOCKWATCH_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BLOCKWATCH_DB_HOST"`
	LegacyPort     int    `envconfig:"BLOCKWATCH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BLOCKWATCH_DB_USER"`
	LegacyPassword string `envconfig:"BLOCKWATCH_DB_PASSWORD"`
	LegacyName     string `envconfig:"BLOCKWATCH_DB_NAME"`
	LegacySSLMode  string `envconfig:"BLOCKWATCH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BLOCKWATCH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BLOCKWATCH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BLOCKWATCH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BLOCKWATCH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BLOCKWATCH_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BLOCKWATCH_REDIS_ADDR"`
	Password     string        `envconfig:"BLOCKWATCH_REDIS_PASSWORD"`
	DB           int           `envconfig:"BLOCKWATCH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BLOCKWATCH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BLOCKWATCH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BLOCKWATCH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BLOCKWATCH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BLOCKWATCH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BLOCKWATCH_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BLOCKWATCH_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BLOCKWATCH_JWT_EXPIRATION_MINUTES" default:"10080"`
}

// TokenTTL returns the session token lifetime. Defaults to seven days.
func (j JWTConfig) TokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	MinLength        int `envconfig:"BLOCKWATCH_PASSWORD_MIN_LENGTH" default:"8"`
	ArgonMemoryKB    int `envconfig:"BLOCKWATCH_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BLOCKWATCH_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BLOCKWATCH_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BLOCKWATCH_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BLOCKWATCH_ARGON_KEY_LEN" default:"32"`
}

type QuotaConfig struct {
	FreeLookupLimit int `envconfig:"BLOCKWATCH_QUOTA_FREE_LOOKUP_LIMIT" default:"1"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"BLOCKWATCH_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"BLOCKWATCH_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"BLOCKWATCH_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"BLOCKWATCH_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"BLOCKWATCH_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"BLOCKWATCH_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"BLOCKWATCH_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"BLOCKWATCH_AUTO_MIGRATE" default:"false"`
}

type StripeConfig struct {
	APIKey              string `envconfig:"BLOCKWATCH_STRIPE_API_KEY"`
	Secret              string `envconfig:"BLOCKWATCH_STRIPE_SECRET"`
	Env                 string `envconfig:"BLOCKWATCH_STRIPE_ENV" default:"test"`
	SubscriptionPriceID string `envconfig:"BLOCKWATCH_STRIPE_SUBSCRIPTION_PRICE_ID"`
	CheckoutSuccessURL  string `envconfig:"BLOCKWATCH_STRIPE_CHECKOUT_SUCCESS_URL"`
	CheckoutCancelURL   string `envconfig:"BLOCKWATCH_STRIPE_CHECKOUT_CANCEL_URL"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
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
