package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	Session       SessionConfig
	Password      PasswordConfig
	UserID        UserIDConfig
	AuthRateLimit AuthRateLimitConfig
	TLS           TLSConfig
	Tenants       TenantsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects combinations that are unsafe or cannot be served.
func (c *Config) Validate() error {
	switch c.DB.normalizedDriver() {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvDBDriver, DriverSQLite, DriverPostgres, c.DB.Driver)
	}
	if strings.TrimSpace(c.DB.DSN) == "" {
		return fmt.Errorf("%s is required", EnvDBDSN)
	}

	switch c.Session.normalizedStore() {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("%s or PORTAL_REDIS_ADDR is required when %s=%s", EnvRedisURL, EnvSessionStore, SessionStoreRedis)
		}
	default:
		return fmt.Errorf("%s must be %q or %q, got %q", EnvSessionStore, SessionStoreMemory, SessionStoreRedis, c.Session.Store)
	}
	if strings.TrimSpace(c.Session.Secret) == "" {
		return fmt.Errorf("%s is required", EnvSessionSecret)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("PORTAL_SESSION_TTL must be positive")
	}

	switch c.Password.NormalizedPolicy() {
	case PasswordPolicyArgon2id, PasswordPolicyBcrypt, PasswordPolicyPlaintext:
	default:
		return fmt.Errorf("%s must be one of argon2id, bcrypt, plaintext; got %q", EnvPasswordPolicy, c.Password.Policy)
	}

	if c.UserID.MaxAttempts <= 0 {
		return fmt.Errorf("%s must be positive", EnvUserIDAttempts)
	}

	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return fmt.Errorf("%s and %s must be set together", EnvTLSCertFile, EnvTLSKeyFile)
	}

	if c.App.IsProd() {
		if c.Session.Secret == DefaultSessionSecret {
			return fmt.Errorf("%s must be changed from the default in prod", EnvSessionSecret)
		}
		if c.Password.NormalizedPolicy() == PasswordPolicyPlaintext {
			return fmt.Errorf("%s=plaintext is not allowed in prod", EnvPasswordPolicy)
		}
	}
	return nil
}

type AppConfig struct {
	Env             string        `envconfig:"PORTAL_APP_ENV" default:"dev"`
	Port            string        `envconfig:"PORTAL_APP_PORT" default:"80"`
	Host            string        `envconfig:"PORTAL_APP_HOST" default:"0.0.0.0"`
	LogLevel        string        `envconfig:"PORTAL_LOG_LEVEL" default:"info"`
	LogWarnStack    bool          `envconfig:"PORTAL_LOG_WARN_STACK" default:"false"`
	ReadTimeout     time.Duration `envconfig:"PORTAL_HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"PORTAL_HTTP_WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"PORTAL_SHUTDOWN_TIMEOUT" default:"20s"`
	CORSOrigins     []string      `envconfig:"PORTAL_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	Driver      string `envconfig:"PORTAL_DB_DRIVER" default:"sqlite"`
	DSN         string `envconfig:"PORTAL_DB_DSN" default:"database.db"`
	AutoMigrate bool   `envconfig:"PORTAL_DB_AUTO_MIGRATE" default:"true"`

	MaxOpenConns    int           `envconfig:"PORTAL_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"PORTAL_DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"PORTAL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PORTAL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// Dialect returns the goose dialect matching the configured driver.
func (d DBConfig) Dialect() string {
	if d.normalizedDriver() == DriverPostgres {
		return "postgres"
	}
	return "sqlite3"
}

// IsPostgres reports whether the portal runs against Postgres instead of SQLite.
func (d DBConfig) IsPostgres() bool {
	return d.normalizedDriver() == DriverPostgres
}

func (d DBConfig) normalizedDriver() string {
	return strings.ToLower(strings.TrimSpace(d.Driver))
}

type RedisConfig struct {
	URL          string        `envconfig:"PORTAL_REDIS_URL"`
	Address      string        `envconfig:"PORTAL_REDIS_ADDR"`
	Password     string        `envconfig:"PORTAL_REDIS_PASSWORD"`
	DB           int           `envconfig:"PORTAL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PORTAL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PORTAL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PORTAL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PORTAL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PORTAL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint has been configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type SessionConfig struct {
	Secret     string        `envconfig:"PORTAL_SESSION_SECRET" default:"your-secret-key"`
	CookieName string        `envconfig:"PORTAL_SESSION_COOKIE" default:"portal.sid"`
	TTL        time.Duration `envconfig:"PORTAL_SESSION_TTL" default:"24h"`
	Store      string        `envconfig:"PORTAL_SESSION_STORE" default:"memory"`
	Issuer     string        `envconfig:"PORTAL_SESSION_ISSUER" default:"portal"`
}

// UsesRedis reports whether sessions live in Redis.
func (s SessionConfig) UsesRedis() bool {
	return s.normalizedStore() == SessionStoreRedis
}

func (s SessionConfig) normalizedStore() string {
	return strings.ToLower(strings.TrimSpace(s.Store))
}

type PasswordConfig struct {
	Policy           string `envconfig:"PORTAL_PASSWORD_POLICY" default:"argon2id"`
	ArgonMemoryKB    int    `envconfig:"PORTAL_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int    `envconfig:"PORTAL_ARGON_TIME" default:"3"`
	ArgonParallelism int    `envconfig:"PORTAL_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int    `envconfig:"PORTAL_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int    `envconfig:"PORTAL_ARGON_KEY_LEN" default:"32"`
	BcryptCost       int    `envconfig:"PORTAL_BCRYPT_COST" default:"12"`
}

// NormalizedPolicy returns the lower-cased policy name, defaulting to argon2id.
func (p PasswordConfig) NormalizedPolicy() string {
	policy := strings.ToLower(strings.TrimSpace(p.Policy))
	if policy == "" {
		return PasswordPolicyArgon2id
	}
	return policy
}

type UserIDConfig struct {
	MaxAttempts int `envconfig:"PORTAL_USERID_MAX_ATTEMPTS" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"PORTAL_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginIPLimit       int           `envconfig:"PORTAL_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	LoginUsernameLimit int           `envconfig:"PORTAL_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT" default:"5"`
}

type TLSConfig struct {
	CertFile     string `envconfig:"PORTAL_TLS_CERT_FILE"`
	KeyFile      string `envconfig:"PORTAL_TLS_KEY_FILE"`
	RedirectPort string `envconfig:"PORTAL_TLS_REDIRECT_PORT"`
}

// Enabled reports whether the server should terminate TLS itself.
func (t TLSConfig) Enabled() bool {
	return t.CertFile != "" && t.KeyFile != ""
}

type TenantsConfig struct {
	Default string `envconfig:"PORTAL_DEFAULT_TENANT" default:"portal"`
	WebRoot string `envconfig:"PORTAL_WEB_ROOT"`
}
