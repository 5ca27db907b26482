package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "FABOPS"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "FABOPS_DB_DSN"
	EnvDBHost = "FABOPS_DB_HOST"
	EnvDBUser = "FABOPS_DB_USER"
	EnvDBName = "FABOPS_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	APIKey       APIKeyConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
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
	Env          string `envconfig:"FABOPS_APP_ENV" required:"true"`
	Port         string `envconfig:"FABOPS_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"FABOPS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FABOPS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"FABOPS_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"FABOPS_DB_DSN"`
	Driver string `envconfig:"FABOPS_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FABOPS_DB_HOST"`
	LegacyPort     int    `envconfig:"FABOPS_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FABOPS_DB_USER"`
	LegacyPassword string `envconfig:"FABOPS_DB_PASSWORD"`
	LegacyName     string `envconfig:"FABOPS_DB_NAME"`
	LegacySSLMode  string `envconfig:"FABOPS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FABOPS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FABOPS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FABOPS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FABOPS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FABOPS_REDIS_URL" required:"true"`
	Address      string        `envconfig:"FABOPS_REDIS_ADDR"`
	Password     string        `envconfig:"FABOPS_REDIS_PASSWORD"`
	DB           int           `envconfig:"FABOPS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FABOPS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FABOPS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FABOPS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FABOPS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FABOPS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"FABOPS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"FABOPS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"FABOPS_JWT_EXPIRATION_MINUTES" required:"true"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 0
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// APIKeyConfig holds argon2id parameters for service API key hashing.
type APIKeyConfig struct {
	ArgonMemoryKB    int `envconfig:"FABOPS_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"FABOPS_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"FABOPS_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"FABOPS_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"FABOPS_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FABOPS_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FABOPS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"FABOPS_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"FABOPS_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"FABOPS_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	StockTopic        string `envconfig:"FABOPS_PUBSUB_STOCK_TOPIC" required:"true"`
	StockSubscription string `envconfig:"FABOPS_PUBSUB_STOCK_SUBSCRIPTION" required:"true"`
	AuditTopic        string `envconfig:"FABOPS_PUBSUB_AUDIT_TOPIC" default:"fabops-audit-events"`
	AuditSubscription string `envconfig:"FABOPS_PUBSUB_AUDIT_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"FABOPS_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"FABOPS_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"FABOPS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	OutboxRetentionDays       int           `envconfig:"FABOPS_CRON_OUTBOX_RETENTION_DAYS" default:"7"`
	StaleReservationThreshold time.Duration `envconfig:"FABOPS_CRON_STALE_RESERVATION_THRESHOLD" default:"72h"`
	Interval                  time.Duration `envconfig:"FABOPS_CRON_INTERVAL" default:"1h"`
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
