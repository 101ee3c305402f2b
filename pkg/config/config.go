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
	RateLimit     RateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Realtime      RealtimeConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	Cron          CronConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Realtime.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WISHWALL_APP_ENV" required:"true"`
	Port         string `envconfig:"WISHWALL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"WISHWALL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WISHWALL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	env := strings.ToLower(strings.TrimSpace(a.Env))
	return env == AppEnvProd || env == "production"
}

type ServiceConfig struct {
	Kind string `envconfig:"WISHWALL_SERVICE_KIND" default:"api"`
	// MetricsAddr is where worker binaries serve /metrics. Blank disables it.
	MetricsAddr string `envconfig:"WISHWALL_WORKER_METRICS_ADDR" default:":9090"`
}

type DBConfig struct {
	DSN    string `envconfig:"WISHWALL_DB_DSN"`
	Driver string `envconfig:"WISHWALL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"WISHWALL_DB_HOST"`
	LegacyPort     int    `envconfig:"WISHWALL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"WISHWALL_DB_USER"`
	LegacyPassword string `envconfig:"WISHWALL_DB_PASSWORD"`
	LegacyName     string `envconfig:"WISHWALL_DB_NAME"`
	LegacySSLMode  string `envconfig:"WISHWALL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WISHWALL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WISHWALL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WISHWALL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WISHWALL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	// SlowQuery is the duration above which a statement is logged at warn.
	SlowQuery time.Duration `envconfig:"WISHWALL_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"WISHWALL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"WISHWALL_REDIS_ADDR"`
	Password     string        `envconfig:"WISHWALL_REDIS_PASSWORD"`
	DB           int           `envconfig:"WISHWALL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WISHWALL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WISHWALL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WISHWALL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WISHWALL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WISHWALL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"WISHWALL_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"WISHWALL_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"WISHWALL_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"WISHWALL_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"WISHWALL_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"WISHWALL_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"WISHWALL_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"WISHWALL_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"WISHWALL_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"WISHWALL_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"WISHWALL_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"WISHWALL_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"WISHWALL_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"WISHWALL_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"WISHWALL_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// RateLimitConfig bounds per-client request throughput on the authenticated API.
type RateLimitConfig struct {
	RequestsPerSecond float64       `envconfig:"WISHWALL_RATE_LIMIT_RPS" default:"10"`
	Burst             int           `envconfig:"WISHWALL_RATE_LIMIT_BURST" default:"20"`
	IdleTTL           time.Duration `envconfig:"WISHWALL_RATE_LIMIT_IDLE_TTL" default:"10m"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"WISHWALL_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"WISHWALL_AUTO_MIGRATE" default:"false"`
}

type RealtimeConfig struct {
	Driver               string        `envconfig:"WISHWALL_REALTIME_DRIVER" default:"memory"`
	Channel              string        `envconfig:"WISHWALL_REALTIME_CHANNEL" default:"wish_changes"`
	PingInterval         time.Duration `envconfig:"WISHWALL_REALTIME_PING_INTERVAL" default:"30s"`
	WriteTimeout         time.Duration `envconfig:"WISHWALL_REALTIME_WRITE_TIMEOUT" default:"10s"`
	SnapshotLimit        int           `envconfig:"WISHWALL_REALTIME_SNAPSHOT_LIMIT" default:"50"`
	ListenerMinReconnect time.Duration `envconfig:"WISHWALL_REALTIME_LISTENER_MIN_RECONNECT" default:"1s"`
	ListenerMaxReconnect time.Duration `envconfig:"WISHWALL_REALTIME_LISTENER_MAX_RECONNECT" default:"1m"`
}

func (r RealtimeConfig) validate() error {
	switch r.NormalizedDriver() {
	case RealtimeDriverMemory, RealtimeDriverRedis:
		return nil
	case RealtimeDriverPostgres:
		if r.Channel != PGNotifyChannel {
			return fmt.Errorf("%s must be %q with the postgres driver, got %q", EnvRealtimeChannel, PGNotifyChannel, r.Channel)
		}
		return nil
	default:
		return fmt.Errorf("%s must be one of %s, %s, %s", EnvRealtimeDriver, RealtimeDriverMemory, RealtimeDriverRedis, RealtimeDriverPostgres)
	}
}

// NormalizedDriver returns the lower-cased driver name.
func (r RealtimeConfig) NormalizedDriver() string {
	return strings.ToLower(strings.TrimSpace(r.Driver))
}

type GCPConfig struct {
	ProjectID              string `envconfig:"WISHWALL_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"WISHWALL_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"WISHWALL_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	WishEventsTopic string `envconfig:"WISHWALL_PUBSUB_WISH_EVENTS_TOPIC" default:"wish-events"`
}

type OutboxConfig struct {
	Enabled        bool `envconfig:"WISHWALL_OUTBOX_ENABLED" default:"true"`
	BatchSize      int  `envconfig:"WISHWALL_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int  `envconfig:"WISHWALL_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int  `envconfig:"WISHWALL_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int  `envconfig:"WISHWALL_OUTBOX_RETENTION_DAYS" default:"14"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"WISHWALL_CRON_INTERVAL" default:"1h"`
	LockKey  string        `envconfig:"WISHWALL_CRON_LOCK_KEY" default:"ww:cron:lock"`
	LockTTL  time.Duration `envconfig:"WISHWALL_CRON_LOCK_TTL" default:"55m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"WISHWALL_CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = "file:wishwall.db?cache=shared"
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
