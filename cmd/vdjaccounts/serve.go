package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platinummonkey/vdjaccounts/pkg/api"
	"github.com/platinummonkey/vdjaccounts/pkg/config"
	"github.com/platinummonkey/vdjaccounts/pkg/observability"
)

// replicaCheckInterval is how often dead read replicas are pruned
const replicaCheckInterval = 30 * time.Second

type serveFlags struct {
	port     string
	logLevel string
	store    string
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the accounts HTTP API",
		Long: `Run the accounts HTTP API and the health/metrics listener.
Flags override the matching VDJ_* environment variables.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if err := flags.apply(cmd, cfg); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVar(&flags.port, "port", "", "API listen port (VDJ_SERVER_PORT)")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "log level (VDJ_OBSERVABILITY_LOG_LEVEL)")
	cmd.Flags().StringVar(&flags.store, "store", "", "account store: memory or postgres (VDJ_DATABASE_STORE)")

	return cmd
}

// apply copies explicitly set flags onto cfg and revalidates it
func (f *serveFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := false
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = f.port
		changed = true
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Observability.LogLevel = f.logLevel
		changed = true
	}
	if cmd.Flags().Changed("store") {
		cfg.Database.Store = f.store
		changed = true
	}
	if !changed {
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := cfg.Observability.NewLogger()

	providers, err := observability.InitOTel(ctx, cfg.Observability.OTelConfig(), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	d, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		_ = observability.ShutdownOTel(context.Background(), providers, logger)
		return err
	}

	apiServer := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: d.server.Handler(api.HandlerConfig{
			RequestTimeout: cfg.Server.RequestTimeout,
			MaxBodyBytes:   cfg.Server.MaxBodyBytes,
			CORSOrigins:    cfg.Server.CORSOrigins,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	healthServer := &http.Server{
		Addr:              cfg.Server.HealthAddr(),
		Handler:           d.healthHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc("storage", func(context.Context) error { return d.close() })
	shutdown.RegisterShutdownFunc("otel", func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	if d.localLimiter != nil {
		d.localLimiter.StartCleanup(ctx)
	}
	if d.db != nil && d.db.ReplicaCount() > 0 {
		d.db.StartHealthCheckRoutine(ctx, replicaCheckInterval)
	}

	serveErrs := make(chan error, 2)
	listen := func(name string, srv *http.Server) {
		defer observability.RecoverPanic(logger, name+" listener")
		logger.WithFields(logrus.Fields{"listener": name, "addr": srv.Addr}).Info("Listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrs <- fmt.Errorf("%s server: %w", name, err)
			cancel()
		}
	}
	go listen("api", apiServer)
	go listen("health", healthServer)

	logger.WithField("version", version).Info("vdjaccounts started")
	shutdownErr := shutdown.WaitForShutdown(ctx)

	select {
	case err := <-serveErrs:
		return errors.Join(err, shutdownErr)
	default:
		return shutdownErr
	}
}
