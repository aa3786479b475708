package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/vdjaccounts/pkg/accounts"
	"github.com/platinummonkey/vdjaccounts/pkg/api"
	"github.com/platinummonkey/vdjaccounts/pkg/audit"
	"github.com/platinummonkey/vdjaccounts/pkg/broker"
	"github.com/platinummonkey/vdjaccounts/pkg/config"
	"github.com/platinummonkey/vdjaccounts/pkg/credential"
	"github.com/platinummonkey/vdjaccounts/pkg/mail"
	"github.com/platinummonkey/vdjaccounts/pkg/middleware"
	"github.com/platinummonkey/vdjaccounts/pkg/observability"
	"github.com/platinummonkey/vdjaccounts/pkg/platform"
	"github.com/platinummonkey/vdjaccounts/pkg/storage/postgres"
)

// deps holds every long-lived component of a running service
type deps struct {
	cfg    *config.Config
	logger *logrus.Logger

	registry *prometheus.Registry
	metrics  *observability.Metrics

	db           *postgres.ConnectionManager
	redis        *redis.Client
	localLimiter *middleware.RateLimiter

	brokerClient *broker.Client
	session      *broker.Session

	audit   *audit.MultiLogger
	service *accounts.Service
	health  *observability.HealthChecker
	server  *api.Server
}

// buildDeps wires the service from configuration. On error everything
// opened so far is closed again.
func buildDeps(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (d *deps, err error) {
	built := &deps{cfg: cfg, logger: logger}
	d = built
	defer func() {
		if err != nil {
			if closeErr := built.close(); closeErr != nil {
				logger.WithError(closeErr).Warn("Failed to release partially built dependencies")
			}
			d = nil
		}
	}()

	if cfg.Observability.MetricsEnabled {
		d.registry = prometheus.NewRegistry()
		d.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		d.metrics = observability.NewMetrics(d.registry)
	}

	store, err := d.buildStore(ctx)
	if err != nil {
		return nil, err
	}

	resets, limiter, err := d.buildSharedState(ctx)
	if err != nil {
		return nil, err
	}

	if err := d.buildBroker(); err != nil {
		return nil, err
	}

	serviceOpts := []accounts.ServiceOption{
		accounts.WithResetStore(resets),
		accounts.WithResetTTL(cfg.Reset.TTL),
	}
	if cfg.Auth.CacheSize > 0 {
		serviceOpts = append(serviceOpts, accounts.WithAuthCache(accounts.NewAuthCache(cfg.Auth.CacheSize, cfg.Auth.CacheTTL)))
	} else {
		serviceOpts = append(serviceOpts, accounts.WithAuthCache(nil))
	}
	if d.metrics != nil {
		serviceOpts = append(serviceOpts, accounts.WithRecorder(d.metrics))
	}

	notifier, err := buildNotifier(cfg, logger)
	if err != nil {
		return nil, err
	}
	serviceOpts = append(serviceOpts, accounts.WithNotifier(notifier))

	if cfg.Platform.Enabled() {
		registrar, err := d.buildPlatform()
		if err != nil {
			return nil, err
		}
		serviceOpts = append(serviceOpts, accounts.WithRegistrar(registrar))
	}

	hasher := credential.NewHasher(
		credential.WithParams(cfg.Auth.HasherParams()),
		credential.WithLegacyMD5(cfg.Auth.LegacyMD5),
	)
	d.service = accounts.NewService(store, hasher, logger, serviceOpts...)

	d.health = d.buildHealthChecker()

	if err := d.buildAudit(); err != nil {
		return nil, err
	}

	resetConfig := &middleware.RateLimitConfig{
		RequestsPerWindow: cfg.Reset.RateLimit,
		WindowDuration:    cfg.Reset.RateWindow,
	}
	apiOpts := []api.Option{
		api.WithHealthChecker(d.health),
		api.WithResetRateLimit(middleware.NewRateLimitMiddleware(limiter, resetConfig, "reset", logger,
			middleware.WithTrustProxy(cfg.Server.TrustProxy),
		)),
	}
	if d.metrics != nil {
		apiOpts = append(apiOpts, api.WithMetrics(d.metrics, d.registry))
	}
	if d.audit.Len() > 0 {
		apiOpts = append(apiOpts, api.WithAuditLogger(d.audit, cfg.Server.TrustProxy))
	}

	var tokens api.TokenBroker
	if d.brokerClient != nil {
		tokens = d.brokerClient
	}
	d.server = api.NewServer(d.service, tokens, logger, apiOpts...)

	return d, nil
}

func (d *deps) buildStore(ctx context.Context) (accounts.Store, error) {
	if d.cfg.Database.Store == config.StoreMemory {
		d.logger.Warn("Using in-memory account store; accounts are lost on restart")
		return accounts.NewMemoryStore(), nil
	}

	db, err := postgres.NewConnectionManager(d.cfg.Database.ConnectionConfig(), d.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	d.db = db

	if d.cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db.Primary(), accounts.Migrations, accounts.MigrationsDir); err != nil {
			return nil, err
		}
		d.logger.Info("Database migrations applied")
	}

	if d.metrics != nil {
		if err := d.metrics.RegisterDBStats(db.Primary(), "accounts"); err != nil {
			return nil, fmt.Errorf("failed to register database metrics: %w", err)
		}
	}

	return accounts.NewPostgresStore(db.Primary(), accounts.WithReaderFunc(db.Replica)), nil
}

// buildSharedState picks Redis for reset tokens and rate limits when
// configured so they are shared across instances
func (d *deps) buildSharedState(ctx context.Context) (accounts.ResetStore, middleware.Limiter, error) {
	resetConfig := &middleware.RateLimitConfig{
		RequestsPerWindow: d.cfg.Reset.RateLimit,
		WindowDuration:    d.cfg.Reset.RateWindow,
	}

	if !d.cfg.Redis.Enabled() {
		d.localLimiter = middleware.NewRateLimiter(resetConfig)
		return accounts.NewMemoryResetStore(), d.localLimiter, nil
	}

	client, err := postgres.NewRedisClient(ctx, d.cfg.Redis.ClientConfig())
	if err != nil {
		return nil, nil, err
	}
	d.redis = client

	return accounts.NewRedisResetStore(client), middleware.NewDistributedRateLimiter(client, resetConfig, ""), nil
}

func (d *deps) buildBroker() error {
	opts := []broker.Option{
		broker.WithScope(d.cfg.Broker.Scope),
		broker.WithTimeout(d.cfg.Broker.Timeout),
		broker.WithRetry(d.cfg.Broker.MaxAttempts, d.cfg.Broker.BackoffBase),
		broker.WithLogger(d.logger),
	}
	if d.cfg.Broker.InsecureSkipVerify {
		d.logger.Warn("TLS verification disabled for the authorization server")
		opts = append(opts, broker.WithInsecureSkipVerify())
	}
	if d.metrics != nil {
		opts = append(opts, broker.WithRecorder(d.metrics))
	}

	client, err := broker.NewClient(d.cfg.Broker.URL, opts...)
	if err != nil {
		return err
	}
	d.brokerClient = client

	if d.cfg.Broker.HasServiceCredentials() {
		sessionOpts := []broker.SessionOption{
			broker.WithExpiryMargin(d.cfg.Broker.ExpiryMargin),
			broker.WithSessionLogger(d.logger),
		}
		if d.metrics != nil {
			sessionOpts = append(sessionOpts, broker.WithStateObserver(d.metrics))
		}
		d.session = broker.NewSession(client, d.cfg.Broker.ClientID, d.cfg.Broker.ClientSecret, sessionOpts...)
	}
	return nil
}

func (d *deps) buildPlatform() (*platform.Client, error) {
	if d.session == nil {
		return nil, errors.New("platform registration needs broker service credentials")
	}
	return platform.NewClient(d.cfg.Platform.URL, d.cfg.Platform.ServiceUser, d.session,
		platform.WithLogger(d.logger),
	)
}

// buildAudit opens every configured audit sink
func (d *deps) buildAudit() error {
	var loggers []audit.Logger
	if d.cfg.Audit.HasSink(config.AuditSinkLog) {
		loggers = append(loggers, audit.NewLogrusLogger(d.logger))
	}
	if d.cfg.Audit.HasSink(config.AuditSinkFile) {
		fileLogger, err := audit.NewFileLogger(audit.FileLoggerConfig{
			BasePath: d.cfg.Audit.FilePath,
			Rotate:   true,
			MaxSize:  d.cfg.Audit.FileMaxBytes,
			MaxFiles: d.cfg.Audit.FileMaxFiles,
		})
		if err != nil {
			return err
		}
		loggers = append(loggers, fileLogger)
	}
	if d.cfg.Audit.HasSink(config.AuditSinkDatabase) {
		if d.db == nil {
			return errors.New("audit database sink needs the postgres store")
		}
		dbLogger, err := audit.NewDBLogger(d.db.Primary())
		if err != nil {
			return err
		}
		loggers = append(loggers, dbLogger)
	}
	d.audit = audit.NewMultiLogger(loggers...)
	return nil
}

func buildNotifier(cfg *config.Config, logger *logrus.Logger) (*mail.ResetNotifier, error) {
	var mailer mail.Mailer
	switch cfg.Mail.Driver {
	case config.MailerSMTP:
		smtp, err := mail.NewSMTPMailer(cfg.Mail.SMTPConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to configure smtp: %w", err)
		}
		mailer = smtp
	default:
		logger.Warn("Using log mailer; reset links are written to the log")
		mailer = mail.NewLogMailer(logger)
	}
	return mail.NewResetNotifier(mailer, cfg.Reset.LinkBaseURL)
}

func (d *deps) buildHealthChecker() *observability.HealthChecker {
	var opts []observability.HealthOption
	if d.db != nil {
		opts = append(opts, observability.WithDatabase(d.db))
	}
	if d.redis != nil {
		opts = append(opts, observability.WithRedis(d.redis))
	}
	if d.session != nil {
		opts = append(opts, observability.WithBrokerSession(d.session))
	}
	return observability.NewHealthChecker(version, opts...)
}

// healthHandler serves the probes and metrics on the health port
func (d *deps) healthHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", d.health.Liveness)
	mux.HandleFunc("/readyz", d.health.Readiness)
	if d.registry != nil {
		mux.Handle("/metrics", observability.MetricsHandler(d.registry))
	}
	return mux
}

func (d *deps) close() error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.audit != nil {
		if err := d.audit.Close(); err != nil {
			errs = append(errs, fmt.Errorf("audit: %w", err))
		}
	}
	if d.redis != nil {
		if err := d.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if d.db != nil {
		if err := d.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	return errors.Join(errs...)
}
