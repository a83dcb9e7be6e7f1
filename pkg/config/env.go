package config

const (
	EnvPrefix = "PORTAL"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv          = "PORTAL_APP_ENV"
	EnvPort            = "PORTAL_APP_PORT"
	EnvDBDriver        = "PORTAL_DB_DRIVER"
	EnvDBDSN           = "PORTAL_DB_DSN"
	EnvRedisURL        = "PORTAL_REDIS_URL"
	EnvSessionSecret   = "PORTAL_SESSION_SECRET"
	EnvSessionStore    = "PORTAL_SESSION_STORE"
	EnvPasswordPolicy  = "PORTAL_PASSWORD_POLICY"
	EnvTLSCertFile     = "PORTAL_TLS_CERT_FILE"
	EnvTLSKeyFile      = "PORTAL_TLS_KEY_FILE"
	EnvDefaultTenant   = "PORTAL_DEFAULT_TENANT"
	EnvUserIDAttempts  = "PORTAL_USERID_MAX_ATTEMPTS"
	EnvWebRoot         = "PORTAL_WEB_ROOT"
	EnvLoginIPLimit    = "PORTAL_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT"
	EnvLoginUserLimit  = "PORTAL_AUTH_RATE_LIMIT_LOGIN_USERNAME_LIMIT"
	EnvTLSRedirectPort = "PORTAL_TLS_REDIRECT_PORT"

	// DefaultSessionSecret mirrors the legacy hard-coded secret and is refused in prod.
	DefaultSessionSecret = "your-secret-key"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"

	PasswordPolicyArgon2id  = "argon2id"
	PasswordPolicyBcrypt    = "bcrypt"
	PasswordPolicyPlaintext = "plaintext"
)
