package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/vdjaccounts/pkg/accounts"
	"github.com/platinummonkey/vdjaccounts/pkg/audit"
	"github.com/platinummonkey/vdjaccounts/pkg/broker"
	"github.com/platinummonkey/vdjaccounts/pkg/httputil"
	"github.com/platinummonkey/vdjaccounts/pkg/middleware"
	"github.com/platinummonkey/vdjaccounts/pkg/observability"
)

// AccountService is the account lifecycle the handlers drive
type AccountService interface {
	Register(ctx context.Context, req accounts.RegisterRequest) (*accounts.Account, error)
	Authenticate(ctx context.Context, username, password string) (*accounts.Account, error)
	UpdateProfile(ctx context.Context, username string, update accounts.ProfileUpdate) (*accounts.Account, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	DeleteAccount(ctx context.Context, username string) error
}

// TokenBroker obtains tokens from the authorization server
type TokenBroker interface {
	FetchToken(ctx context.Context, clientID, clientSecret string) (*broker.Token, error)
	RefreshToken(ctx context.Context, clientID, refreshToken string) (*broker.Token, error)
}

// Server represents our API server
type Server struct {
	accounts     AccountService
	tokens       TokenBroker
	router       *mux.Router
	logger       *logrus.Logger
	auth         *middleware.AuthMiddleware
	resetLimiter *middleware.RateLimitMiddleware
	health       *observability.HealthChecker
	metrics      *observability.Metrics
	registry     *prometheus.Registry
	audit        audit.Logger
	trustProxy   bool
}

// Option configures a Server
type Option func(*Server)

// WithResetRateLimit throttles the password reset endpoints
func WithResetRateLimit(limiter *middleware.RateLimitMiddleware) Option {
	return func(s *Server) { s.resetLimiter = limiter }
}

// WithHealthChecker serves /healthz and /readyz
func WithHealthChecker(checker *observability.HealthChecker) Option {
	return func(s *Server) { s.health = checker }
}

// WithMetrics instruments every route and serves /metrics from registry
func WithMetrics(metrics *observability.Metrics, registry *prometheus.Registry) Option {
	return func(s *Server) {
		s.metrics = metrics
		s.registry = registry
	}
}

// WithAuditLogger records an audit event for every account and token
// operation. trustProxy takes the client address from X-Forwarded-For.
func WithAuditLogger(logger audit.Logger, trustProxy bool) Option {
	return func(s *Server) {
		s.audit = logger
		s.trustProxy = trustProxy
	}
}

// NewServer creates a new API server. tokens may be nil, in which case the
// /token routes are not registered.
func NewServer(service AccountService, tokens TokenBroker, logger *logrus.Logger, opts ...Option) *Server {
	s := &Server{
		accounts: service,
		tokens:   tokens,
		router:   mux.NewRouter(),
		logger:   logger,
		auth:     middleware.NewAuthMiddleware(service, logger),
		audit:    audit.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	if s.metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(s.metrics))
	}

	// Account routes
	s.router.HandleFunc("/user", s.register).Methods("POST")
	s.router.HandleFunc("/user/authenticate", s.authenticate).Methods("POST")
	s.router.Handle("/user/profile", s.auth.Handler(http.HandlerFunc(s.updateProfile))).Methods("POST")
	s.router.Handle("/user", s.auth.Handler(http.HandlerFunc(s.deleteAccount))).Methods("DELETE")

	// Password reset routes
	requestReset := http.Handler(http.HandlerFunc(s.requestPasswordReset))
	verifyReset := http.Handler(http.HandlerFunc(s.verifyPasswordReset))
	if s.resetLimiter != nil {
		requestReset = s.resetLimiter.Handler(requestReset)
		verifyReset = s.resetLimiter.Handler(verifyReset)
	}
	s.router.Handle("/user/reset-password", requestReset).Methods("POST")
	s.router.Handle("/user/reset-password/verify", verifyReset).Methods("POST")

	// Token routes
	if s.tokens != nil {
		s.router.HandleFunc("/token", s.fetchToken).Methods("POST")
		s.router.HandleFunc("/token", s.refreshToken).Methods("PUT")
	}

	// Operational routes
	if s.health != nil {
		s.router.HandleFunc("/healthz", s.health.Liveness).Methods("GET")
		s.router.HandleFunc("/readyz", s.health.Readiness).Methods("GET")
	}
	if s.registry != nil {
		s.router.Handle("/metrics", observability.MetricsHandler(s.registry)).Methods("GET")
	}

	s.router.NotFoundHandler = http.HandlerFunc(notFound)
	s.router.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HandlerConfig bounds inbound requests
type HandlerConfig struct {
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	CORSOrigins    []string
}

// Handler wraps the router in the request middleware stack: panic recovery,
// request ids, access logging, CORS, body limits and a request deadline.
func (s *Server) Handler(cfg HandlerConfig) http.Handler {
	middlewares := []func(http.Handler) http.Handler{
		httputil.RecoveryMiddleware(s.logger),
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware(s.logger),
	}
	if len(cfg.CORSOrigins) > 0 {
		middlewares = append(middlewares, httputil.CORSMiddleware(cfg.CORSOrigins))
	}
	if cfg.MaxBodyBytes > 0 {
		middlewares = append(middlewares, httputil.MaxBytesMiddleware(cfg.MaxBodyBytes))
	}
	if cfg.RequestTimeout > 0 {
		middlewares = append(middlewares, httputil.TimeoutMiddleware(cfg.RequestTimeout))
	}
	return httputil.Chain(middlewares...)(s)
}

// Router exposes the underlying router so callers can mount extra routes
func (s *Server) Router() *mux.Router {
	return s.router
}

func notFound(w http.ResponseWriter, r *http.Request) {
	httputil.WriteNotFound(w, "no route for "+r.Method+" "+r.URL.Path)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "method "+r.Method+" not allowed on "+r.URL.Path)
}
