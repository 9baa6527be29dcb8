package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Password     PasswordConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"AMERTA_APP_ENV" required:"true"`
	Port         string `envconfig:"AMERTA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"AMERTA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"AMERTA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"AMERTA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"AMERTA_DB_DSN"`
	Driver string `envconfig:"AMERTA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"AMERTA_DB_HOST"`
	LegacyPort     int    `envconfig:"AMERTA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"AMERTA_DB_USER"`
	LegacyPassword string `envconfig:"AMERTA_DB_PASSWORD"`
	LegacyName     string `envconfig:"AMERTA_DB_NAME"`
	LegacySSLMode  string `envconfig:"AMERTA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"AMERTA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"AMERTA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"AMERTA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"AMERTA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"AMERTA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"AMERTA_REDIS_ADDR"`
	Password     string        `envconfig:"AMERTA_REDIS_PASSWORD"`
	DB           int           `envconfig:"AMERTA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"AMERTA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"AMERTA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"AMERTA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"AMERTA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"AMERTA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"AMERTA_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"AMERTA_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"AMERTA_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"AMERTA_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"AMERTA_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"AMERTA_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"AMERTA_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"AMERTA_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"AMERTA_ARGON_KEY_LEN" default:"32"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"AMERTA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"AMERTA_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"AMERTA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"AMERTA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"AMERTA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"AMERTA_PUBSUB_ORDERS_TOPIC" default:"amerta-order-events"`
	OrdersSubscription string `envconfig:"AMERTA_PUBSUB_ORDERS_SUBSCRIPTION" default:"amerta-order-events-sub"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"AMERTA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"AMERTA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"AMERTA_OUTBOX_MAX_ATTEMPTS" default:"10"`
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
