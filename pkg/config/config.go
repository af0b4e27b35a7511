package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App       AppConfig
	Service   ServiceConfig
	DB        DBConfig
	Redis     RedisConfig
	GCP       GCPConfig
	PubSub    PubSubConfig
	Eventing  EventingConfig
	Outbox    OutboxConfig
	Payments  PaymentsConfig
	Messenger MessengerConfig
	Followups FollowupsConfig
	Cron      CronConfig
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
	Env          string `envconfig:"CRAFTLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"CRAFTLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"CRAFTLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CRAFTLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CRAFTLINE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"CRAFTLINE_DB_DSN"`
	Driver string `envconfig:"CRAFTLINE_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"CRAFTLINE_DB_HOST"`
	Port     int    `envconfig:"CRAFTLINE_DB_PORT" default:"5432"`
	User     string `envconfig:"CRAFTLINE_DB_USER"`
	Password string `envconfig:"CRAFTLINE_DB_PASSWORD"`
	Name     string `envconfig:"CRAFTLINE_DB_NAME"`
	SSLMode  string `envconfig:"CRAFTLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CRAFTLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CRAFTLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CRAFTLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CRAFTLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"CRAFTLINE_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CRAFTLINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CRAFTLINE_REDIS_ADDR"`
	Password     string        `envconfig:"CRAFTLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"CRAFTLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CRAFTLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CRAFTLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CRAFTLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CRAFTLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CRAFTLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"CRAFTLINE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"CRAFTLINE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"CRAFTLINE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	DomainTopic              string `envconfig:"CRAFTLINE_PUBSUB_DOMAIN_TOPIC" default:"cl-domain-events"`
	NotificationSubscription string `envconfig:"CRAFTLINE_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
	ChatSubscription         string `envconfig:"CRAFTLINE_PUBSUB_CHAT_SUBSCRIPTION" required:"true"`
	AssignmentSubscription   string `envconfig:"CRAFTLINE_PUBSUB_ASSIGNMENT_SUBSCRIPTION" required:"true"`
	PaymentSubscription      string `envconfig:"CRAFTLINE_PUBSUB_PAYMENT_SUBSCRIPTION" required:"true"`
}

type EventingConfig struct {
	IdempotencyTTL time.Duration `envconfig:"CRAFTLINE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"CRAFTLINE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"CRAFTLINE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"CRAFTLINE_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type PaymentsConfig struct {
	BaseURL            string        `envconfig:"CRAFTLINE_PAYMENTS_BASE_URL"`
	APIKey             string        `envconfig:"CRAFTLINE_PAYMENTS_API_KEY"`
	WebhookSecret      string        `envconfig:"CRAFTLINE_PAYMENTS_WEBHOOK_SECRET" required:"true"`
	DepositAmountCents int64         `envconfig:"CRAFTLINE_PAYMENTS_DEPOSIT_AMOUNT_CENTS" default:"5000"`
	RequestTimeout     time.Duration `envconfig:"CRAFTLINE_PAYMENTS_REQUEST_TIMEOUT" default:"15s"`
	MaxRetries         int           `envconfig:"CRAFTLINE_PAYMENTS_MAX_RETRIES" default:"3"`
}

type MessengerConfig struct {
	BaseURL        string        `envconfig:"CRAFTLINE_MESSENGER_BASE_URL"`
	APIToken       string        `envconfig:"CRAFTLINE_MESSENGER_API_TOKEN"`
	RequestTimeout time.Duration `envconfig:"CRAFTLINE_MESSENGER_REQUEST_TIMEOUT" default:"10s"`
	MaxRetries     int           `envconfig:"CRAFTLINE_MESSENGER_MAX_RETRIES" default:"5"`
}

type FollowupsConfig struct {
	ArchiveDelay time.Duration `envconfig:"CRAFTLINE_FOLLOWUP_ARCHIVE_DELAY" default:"720h"`
}

type CronConfig struct {
	Interval         time.Duration `envconfig:"CRAFTLINE_CRON_INTERVAL" default:"1m"`
	OutboxRetention  time.Duration `envconfig:"CRAFTLINE_CRON_OUTBOX_RETENTION" default:"168h"`
	FollowupBatch    int           `envconfig:"CRAFTLINE_CRON_FOLLOWUP_BATCH" default:"100"`
	LockTTL          time.Duration `envconfig:"CRAFTLINE_CRON_LOCK_TTL" default:"5m"`
	RetentionEnabled bool          `envconfig:"CRAFTLINE_CRON_RETENTION_ENABLED" default:"true"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	parts := map[string]string{
		"CRAFTLINE_DB_HOST": db.Host,
		"CRAFTLINE_DB_USER": db.User,
		"CRAFTLINE_DB_NAME": db.Name,
	}
	for _, key := range []string{"CRAFTLINE_DB_HOST", "CRAFTLINE_DB_USER", "CRAFTLINE_DB_NAME"} {
		if parts[key] == "" {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either CRAFTLINE_DB_DSN or %s are required", strings.Join(missing, ", "))
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
