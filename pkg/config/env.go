package config

// EnvPrefix is empty because every field spells out its full variable name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	RealtimeDriverMemory   = "memory"
	RealtimeDriverRedis    = "redis"
	RealtimeDriverPostgres = "postgres"
)

// PGNotifyChannel is the channel the wish change trigger notifies on.
const PGNotifyChannel = "wish_changes"

const (
	EnvAppEnv                  = "WISHWALL_APP_ENV"
	EnvPort                    = "WISHWALL_APP_PORT"
	EnvLogLevel                = "WISHWALL_LOG_LEVEL"
	EnvDBDSN                   = "WISHWALL_DB_DSN"
	EnvDBHost                  = "WISHWALL_DB_HOST"
	EnvDBPort                  = "WISHWALL_DB_PORT"
	EnvDBUser                  = "WISHWALL_DB_USER"
	EnvDBPassword              = "WISHWALL_DB_PASSWORD"
	EnvDBName                  = "WISHWALL_DB_NAME"
	EnvDBSSLMode               = "WISHWALL_DB_SSLMODE"
	EnvRedisURL                = "WISHWALL_REDIS_URL"
	EnvJWTSecret               = "WISHWALL_JWT_SECRET"
	EnvJWTIssuer               = "WISHWALL_JWT_ISSUER"
	EnvJWTExpMins              = "WISHWALL_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "WISHWALL_REFRESH_TOKEN_TTL_MINUTES"
	EnvUseSQLite               = "WISHWALL_USE_SQLITE"
	EnvAutoMigrate             = "WISHWALL_AUTO_MIGRATE"
	EnvRealtimeDriver          = "WISHWALL_REALTIME_DRIVER"
	EnvRealtimeChannel         = "WISHWALL_REALTIME_CHANNEL"
	EnvGCPProjectID            = "WISHWALL_GCP_PROJECT_ID"
	EnvPubSubWishEventsTopic   = "WISHWALL_PUBSUB_WISH_EVENTS_TOPIC"
	EnvCronInterval            = "WISHWALL_CRON_INTERVAL"
	EnvCORSAllowedOrigins      = "WISHWALL_CORS_ALLOWED_ORIGINS"
	EnvRateLimitRequestsPerSec = "WISHWALL_RATE_LIMIT_RPS"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
