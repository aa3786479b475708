package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/vdjaccounts/pkg/credential"
	"github.com/platinummonkey/vdjaccounts/pkg/mail"
	"github.com/platinummonkey/vdjaccounts/pkg/observability"
	"github.com/platinummonkey/vdjaccounts/pkg/storage/postgres"
)

// EnvPrefix is prepended to every variable name
const EnvPrefix = "VDJ_"

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	MailerLog  = "log"
	MailerSMTP = "smtp"

	AuditSinkLog      = "log"
	AuditSinkFile     = "file"
	AuditSinkDatabase = "database"
	AuditSinkNone     = "none"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `envPrefix:"SERVER_"`
	Database      DatabaseConfig      `envPrefix:"DATABASE_"`
	Redis         RedisConfig         `envPrefix:"REDIS_"`
	Broker        BrokerConfig        `envPrefix:"BROKER_"`
	Platform      PlatformConfig      `envPrefix:"PLATFORM_"`
	Mail          MailConfig          `envPrefix:"MAIL_"`
	Reset         ResetConfig         `envPrefix:"RESET_"`
	Auth          AuthConfig          `envPrefix:"AUTH_"`
	Audit         AuditConfig         `envPrefix:"AUDIT_"`
	Observability ObservabilityConfig `envPrefix:"OBSERVABILITY_"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `env:"HOST" envDefault:"0.0.0.0"`
	Port            string        `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"45s"`
	IdleTimeout     time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"40s"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:","`
	TrustProxy      bool          `env:"TRUST_PROXY" envDefault:"false"`

	// Health/metrics server (separate port for k8s probes)
	HealthPort string `env:"HEALTH_PORT" envDefault:"9090"`
}

// Addr returns the API listen address
func (c ServerConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// HealthAddr returns the health/metrics listen address
func (c ServerConfig) HealthAddr() string {
	return c.Host + ":" + c.HealthPort
}

// DatabaseConfig selects and configures the account store
type DatabaseConfig struct {
	Store       string        `env:"STORE" envDefault:"postgres"`
	URL         string        `env:"URL"`
	ReplicaURLs string        `env:"REPLICA_URLS"`
	MaxConns    int           `env:"MAX_CONNS" envDefault:"25"`
	MinConns    int           `env:"MIN_CONNS" envDefault:"5"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"10s"`
	MaxLifetime time.Duration `env:"MAX_LIFETIME" envDefault:"30m"`
	MaxIdleTime time.Duration `env:"MAX_IDLE_TIME" envDefault:"5m"`
	AutoMigrate bool          `env:"AUTO_MIGRATE" envDefault:"false"`
}

// ConnectionConfig converts to the postgres connection manager settings
func (c DatabaseConfig) ConnectionConfig() postgres.ConnectionConfig {
	return postgres.ConnectionConfig{
		PrimaryURL:  c.URL,
		ReplicaURLs: postgres.ParseReplicaURLs(c.ReplicaURLs),
		MaxConns:    c.MaxConns,
		MinConns:    c.MinConns,
		Timeout:     c.Timeout,
		MaxLifetime: c.MaxLifetime,
		MaxIdleTime: c.MaxIdleTime,
	}
}

// RedisConfig holds Redis settings. An empty URL keeps reset tokens and rate
// limits in process.
type RedisConfig struct {
	URL        string `env:"URL"`
	Password   string `env:"PASSWORD"`
	DB         int    `env:"DB" envDefault:"0"`
	MaxRetries int    `env:"MAX_RETRIES" envDefault:"3"`
	PoolSize   int    `env:"POOL_SIZE" envDefault:"10"`
}

// Enabled reports whether a Redis server is configured
func (c RedisConfig) Enabled() bool {
	return c.URL != ""
}

// ClientConfig converts to the redis client settings
func (c RedisConfig) ClientConfig() postgres.RedisConfig {
	return postgres.RedisConfig{
		URL:        c.URL,
		Password:   c.Password,
		DB:         c.DB,
		MaxRetries: c.MaxRetries,
		PoolSize:   c.PoolSize,
	}
}

// BrokerConfig configures the upstream token broker
type BrokerConfig struct {
	URL          string `env:"URL"`
	Scope        string `env:"SCOPE" envDefault:"PRODUCTION"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`

	Timeout            time.Duration `env:"TIMEOUT" envDefault:"30s"`
	MaxAttempts        uint64        `env:"MAX_ATTEMPTS" envDefault:"3"`
	BackoffBase        time.Duration `env:"BACKOFF_BASE" envDefault:"200ms"`
	ExpiryMargin       time.Duration `env:"EXPIRY_MARGIN" envDefault:"30s"`
	InsecureSkipVerify bool          `env:"INSECURE_SKIP_VERIFY" envDefault:"false"`
}

// HasServiceCredentials reports whether the service account is configured
func (c BrokerConfig) HasServiceCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// PlatformConfig configures profile registration. An empty URL disables it.
type PlatformConfig struct {
	URL         string `env:"URL"`
	ServiceUser string `env:"SERVICE_USER"`
}

// Enabled reports whether profile registration is configured
func (c PlatformConfig) Enabled() bool {
	return c.URL != ""
}

// MailConfig selects and configures outbound mail
type MailConfig struct {
	Driver    string        `env:"DRIVER" envDefault:"log"`
	Host      string        `env:"HOST"`
	Port      int           `env:"PORT" envDefault:"587"`
	Username  string        `env:"USERNAME"`
	Password  string        `env:"PASSWORD"`
	From      string        `env:"FROM"`
	ReplyTo   string        `env:"REPLY_TO"`
	TLSPolicy string        `env:"TLS_POLICY" envDefault:"mandatory"`
	Timeout   time.Duration `env:"TIMEOUT" envDefault:"30s"`
}

// SMTPConfig converts to the SMTP mailer settings
func (c MailConfig) SMTPConfig() mail.SMTPConfig {
	return mail.SMTPConfig{
		Host:      c.Host,
		Port:      c.Port,
		Username:  c.Username,
		Password:  c.Password,
		From:      c.From,
		ReplyTo:   c.ReplyTo,
		TLSPolicy: c.TLSPolicy,
		Timeout:   c.Timeout,
	}
}

// ResetConfig controls the password reset flow
type ResetConfig struct {
	// LinkBaseURL is the front end page that receives the token
	LinkBaseURL string        `env:"LINK_BASE_URL" envDefault:"http://localhost:9001/password-reset"`
	TTL         time.Duration `env:"TTL" envDefault:"1h"`
	RateLimit   int           `env:"RATE_LIMIT" envDefault:"5"`
	RateWindow  time.Duration `env:"RATE_WINDOW" envDefault:"15m"`
}

// AuthConfig controls credential hashing and the authentication cache
type AuthConfig struct {
	LegacyMD5     bool          `env:"LEGACY_MD5" envDefault:"false"`
	ArgonTime     uint32        `env:"ARGON_TIME" envDefault:"1"`
	ArgonMemoryKB uint32        `env:"ARGON_MEMORY_KB" envDefault:"65536"`
	ArgonThreads  uint8         `env:"ARGON_THREADS" envDefault:"4"`
	CacheSize     int           `env:"CACHE_SIZE" envDefault:"1024"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"5m"`
}

// HasherParams converts to argon2id parameters
func (c AuthConfig) HasherParams() credential.Params {
	params := credential.DefaultParams()
	params.Time = c.ArgonTime
	params.Memory = c.ArgonMemoryKB
	params.Threads = c.ArgonThreads
	return params
}

// AuditConfig selects where account audit events are recorded. The sink
// "none" disables auditing.
type AuditConfig struct {
	Sinks        []string `env:"SINKS" envSeparator:"," envDefault:"log"`
	FilePath     string   `env:"FILE_PATH" envDefault:"/var/log/vdjaccounts/audit"`
	FileMaxBytes int64    `env:"FILE_MAX_BYTES" envDefault:"104857600"`
	FileMaxFiles int      `env:"FILE_MAX_FILES" envDefault:"10"`
}

// HasSink reports whether sink is enabled
func (c AuditConfig) HasSink(sink string) bool {
	for _, s := range c.Sinks {
		if strings.TrimSpace(s) == sink {
			return true
		}
	}
	return false
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Metrics
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// OpenTelemetry
	OTelEnabled        bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint       string `env:"OTEL_ENDPOINT" envDefault:"localhost:4317"`
	OTelServiceName    string `env:"OTEL_SERVICE_NAME" envDefault:"vdjaccounts"`
	OTelServiceVersion string `env:"OTEL_SERVICE_VERSION" envDefault:"1.0.0"`
	OTelInsecure       bool   `env:"OTEL_INSECURE" envDefault:"true"` // Use insecure gRPC connection
}

// Level returns the parsed logrus level
func (c ObservabilityConfig) Level() logrus.Level {
	return parseLogLevel(c.LogLevel)
}

// LoadConfig loads configuration from the process environment
func LoadConfig() (*Config, error) {
	return load(env.Options{Prefix: EnvPrefix})
}

// LoadConfigFrom loads configuration from the given variables instead of the
// process environment
func LoadConfigFrom(vars map[string]string) (*Config, error) {
	return load(env.Options{Prefix: EnvPrefix, Environment: vars})
}

func load(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port is required"))
	}
	if c.Server.HealthPort == "" {
		errs = append(errs, errors.New("health port is required"))
	}
	if c.Server.Port != "" && c.Server.Port == c.Server.HealthPort {
		errs = append(errs, errors.New("server port and health port must be different"))
	}

	switch c.Database.Store {
	case StoreMemory:
	case StorePostgres:
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database URL is required for postgres store"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid store: %s (must be memory or postgres)", c.Database.Store))
	}

	if err := validateURL("broker URL", c.Broker.URL); err != nil {
		errs = append(errs, err)
	}
	if c.Broker.MaxAttempts == 0 {
		errs = append(errs, errors.New("broker max attempts must be at least 1"))
	}

	if c.Platform.Enabled() {
		if err := validateURL("platform URL", c.Platform.URL); err != nil {
			errs = append(errs, err)
		}
		if c.Platform.ServiceUser == "" {
			errs = append(errs, errors.New("platform service user is required when platform URL is set"))
		}
		if !c.Broker.HasServiceCredentials() {
			errs = append(errs, errors.New("broker client id and secret are required for platform registration"))
		}
	}

	switch c.Mail.Driver {
	case MailerLog:
	case MailerSMTP:
		if c.Mail.Host == "" || c.Mail.From == "" {
			errs = append(errs, errors.New("mail host and from address are required for smtp"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid mail driver: %s (must be log or smtp)", c.Mail.Driver))
	}

	if err := validateURL("reset link base URL", c.Reset.LinkBaseURL); err != nil {
		errs = append(errs, err)
	}
	if c.Reset.TTL <= 0 {
		errs = append(errs, errors.New("reset TTL must be positive"))
	}
	if c.Reset.RateLimit <= 0 || c.Reset.RateWindow <= 0 {
		errs = append(errs, errors.New("reset rate limit and window must be positive"))
	}

	for _, sink := range c.Audit.Sinks {
		switch strings.TrimSpace(sink) {
		case AuditSinkLog, AuditSinkNone, "":
		case AuditSinkFile:
			if c.Audit.FilePath == "" {
				errs = append(errs, errors.New("audit file path is required for the file sink"))
			}
		case AuditSinkDatabase:
			if c.Database.Store != StorePostgres {
				errs = append(errs, errors.New("audit database sink requires the postgres store"))
			}
		default:
			errs = append(errs, fmt.Errorf("invalid audit sink: %s (must be log, file, database or none)", sink))
		}
	}

	if _, err := logrus.ParseLevel(c.Observability.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid log level: %s", c.Observability.LogLevel))
	}
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			errs = append(errs, errors.New("OpenTelemetry endpoint is required when OTel is enabled"))
		}
		if c.Observability.OTelServiceName == "" {
			errs = append(errs, errors.New("OpenTelemetry service name is required when OTel is enabled"))
		}
	}

	return errors.Join(errs...)
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%s must be an absolute http(s) URL: %q", name, raw)
	}
	return nil
}

// parseLogLevel parses a log level string, defaulting to info
func parseLogLevel(level string) logrus.Level {
	parsed, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return logrus.InfoLevel
	}
	return parsed
}

// NewLogger builds the process logger from the observability settings
func (c ObservabilityConfig) NewLogger() *logrus.Logger {
	return observability.NewLogger(c.Level(), c.LogFormat, nil)
}

// OTelConfig converts to the OpenTelemetry settings
func (c ObservabilityConfig) OTelConfig() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        c.OTelEnabled,
		Endpoint:       c.OTelEndpoint,
		ServiceName:    c.OTelServiceName,
		ServiceVersion: c.OTelServiceVersion,
		Insecure:       c.OTelInsecure,
	}
}
