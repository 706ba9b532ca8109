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
	EnvPrefix = "VELOX"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "VELOX_DB_DSN"
	EnvDBHost = "VELOX_DB_HOST"
	EnvDBUser = "VELOX_DB_USER"
	EnvDBName = "VELOX_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Rewards      RewardsConfig
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
	if err := cfg.Rewards.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VELOX_APP_ENV" required:"true"`
	Port         string `envconfig:"VELOX_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VELOX_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VELOX_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VELOX_DB_DSN"`
	Driver string `envconfig:"VELOX_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"VELOX_DB_HOST"`
	LegacyPort     int    `envconfig:"VELOX_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"VELOX_DB_USER"`
	LegacyPassword string `envconfig:"VELOX_DB_PASSWORD"`
	LegacyName     string `envconfig:"VELOX_DB_NAME"`
	LegacySSLMode  string `envconfig:"VELOX_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VELOX_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VELOX_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VELOX_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VELOX_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VELOX_REDIS_URL"`
	Address      string        `envconfig:"VELOX_REDIS_ADDR"`
	Password     string        `envconfig:"VELOX_REDIS_PASSWORD"`
	DB           int           `envconfig:"VELOX_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VELOX_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VELOX_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VELOX_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VELOX_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VELOX_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// RewardsConfig drives the bonus credited to a wallet when an order is delivered.
type RewardsConfig struct {
	BonusPercent   string `envconfig:"VELOX_REWARDS_BONUS_PERCENT" default:"5"`
	MinOrderAmount string `envconfig:"VELOX_REWARDS_MIN_ORDER_AMOUNT" default:"50"`
}

func (r RewardsConfig) validate() error {
	percent, err := decimal.NewFromString(r.BonusPercent)
	if err != nil {
		return fmt.Errorf("invalid bonus percent %q: %w", r.BonusPercent, err)
	}
	if percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("bonus percent %s out of range", percent)
	}
	min, err := decimal.NewFromString(r.MinOrderAmount)
	if err != nil {
		return fmt.Errorf("invalid minimum order amount %q: %w", r.MinOrderAmount, err)
	}
	if min.IsNegative() {
		return fmt.Errorf("minimum order amount %s out of range", min)
	}
	return nil
}

// BonusPercentDecimal returns the configured percentage as a decimal.
func (r RewardsConfig) BonusPercentDecimal() decimal.Decimal {
	percent, err := decimal.NewFromString(r.BonusPercent)
	if err != nil {
		return decimal.Zero
	}
	return percent
}

// MinOrderAmountDecimal returns the bonus eligibility threshold as a decimal.
func (r RewardsConfig) MinOrderAmountDecimal() decimal.Decimal {
	min, err := decimal.NewFromString(r.MinOrderAmount)
	if err != nil {
		return decimal.Zero
	}
	return min
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VELOX_AUTO_MIGRATE" default:"false"`
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
