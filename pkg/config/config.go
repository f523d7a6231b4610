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
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Cache         CacheConfig
	Admin         AdminConfig
	SMTP          SMTPConfig
	PasswordReset PasswordResetConfig
	Cron          CronConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"STOCKTRAIL_APP_ENV" required:"true"`
	Port         string `envconfig:"STOCKTRAIL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"STOCKTRAIL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOCKTRAIL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"STOCKTRAIL_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"STOCKTRAIL_DB_DSN"`
	Driver string `envconfig:"STOCKTRAIL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"STOCKTRAIL_DB_HOST"`
	LegacyPort     int    `envconfig:"STOCKTRAIL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"STOCKTRAIL_DB_USER"`
	LegacyPassword string `envconfig:"STOCKTRAIL_DB_PASSWORD"`
	LegacyName     string `envconfig:"STOCKTRAIL_DB_NAME"`
	LegacySSLMode  string `envconfig:"STOCKTRAIL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOCKTRAIL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOCKTRAIL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOCKTRAIL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOCKTRAIL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOCKTRAIL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"STOCKTRAIL_REDIS_ADDR"`
	Password     string        `envconfig:"STOCKTRAIL_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOCKTRAIL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOCKTRAIL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOCKTRAIL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOCKTRAIL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOCKTRAIL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOCKTRAIL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOCKTRAIL_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOCKTRAIL_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"STOCKTRAIL_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"STOCKTRAIL_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STOCKTRAIL_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STOCKTRAIL_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STOCKTRAIL_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STOCKTRAIL_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"STOCKTRAIL_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"STOCKTRAIL_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"STOCKTRAIL_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"STOCKTRAIL_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"STOCKTRAIL_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"STOCKTRAIL_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type CacheConfig struct {
	Capacity  int           `envconfig:"STOCKTRAIL_CACHE_CAPACITY" default:"10000"`
	WriteTTL  time.Duration `envconfig:"STOCKTRAIL_CACHE_WRITE_TTL" default:"30m"`
	AccessTTL time.Duration `envconfig:"STOCKTRAIL_CACHE_ACCESS_TTL" default:"15m"`
}

type AdminConfig struct {
	BootstrapEnabled bool   `envconfig:"STOCKTRAIL_ADMIN_BOOTSTRAP_ENABLED" default:"true"`
	Username         string `envconfig:"STOCKTRAIL_ADMIN_USERNAME" default:"admin"`
	Email            string `envconfig:"STOCKTRAIL_ADMIN_EMAIL" default:"admin@stocktrail.local"`
	Password         string `envconfig:"STOCKTRAIL_ADMIN_PASSWORD"`
}

type SMTPConfig struct {
	Host        string `envconfig:"STOCKTRAIL_SMTP_HOST"`
	Port        int    `envconfig:"STOCKTRAIL_SMTP_PORT" default:"587"`
	Username    string `envconfig:"STOCKTRAIL_SMTP_USERNAME"`
	Password    string `envconfig:"STOCKTRAIL_SMTP_PASSWORD"`
	DefaultFrom string `envconfig:"STOCKTRAIL_SMTP_FROM_EMAIL" default:"no-reply@stocktrail.local"`
}

type PasswordResetConfig struct {
	TokenTTL    time.Duration `envconfig:"STOCKTRAIL_PASSWORD_RESET_TOKEN_TTL" default:"1h"`
	FrontendURL string        `envconfig:"STOCKTRAIL_PASSWORD_RESET_FRONTEND_URL" default:"http://localhost:3000/reset-password"`
}

type CronConfig struct {
	TickInterval    time.Duration `envconfig:"STOCKTRAIL_CRON_TICK_INTERVAL" default:"1m"`
	LockTTL         time.Duration `envconfig:"STOCKTRAIL_CRON_LOCK_TTL" default:"5m"`
	TokenCleanupAge time.Duration `envconfig:"STOCKTRAIL_CRON_TOKEN_CLEANUP_AGE" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOCKTRAIL_AUTO_MIGRATE" default:"false"`
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
