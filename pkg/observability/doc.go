// Package observability provides structured logging, Prometheus metrics, health probes,
// OpenTelemetry tracing, and graceful shutdown for the accounts service.
//
// # Structured Logging
//
// Loggers are plain logrus loggers:
//
//	logger := observability.NewLogger(logrus.InfoLevel, "json", nil)
//	logger.WithField("username", name).Info("Account registered")
//
// # Prometheus Metrics
//
// Metrics implements the recorder interfaces of the accounts and broker packages:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	client := broker.NewClient(url, broker.WithRecorder(metrics))
//	router.Use(observability.HTTPMetricsMiddleware(metrics))
//
// HTTP series are labelled with the gorilla/mux route template, never the raw path.
//
// # Health Checks
//
// The database is required for readiness; Redis and a failed broker session only
// degrade it:
//
//	checker := observability.NewHealthChecker(version,
//		observability.WithDatabase(db),
//		observability.WithRedis(redisClient),
//		observability.WithBrokerSession(session),
//	)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, cfg, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/httputil: Request logging middleware
package observability
