package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/platinummonkey/vdjaccounts/pkg/broker"
)

// DatabasePinger reports database reachability
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// BrokerSession exposes the token broker session state
type BrokerSession interface {
	State() broker.State
}

// HealthChecker provides health check functionality
type HealthChecker struct {
	db      DatabasePinger
	redis   *redis.Client
	session BrokerSession
	version string
	now     func() time.Time
}

// HealthOption configures a HealthChecker
type HealthOption func(*HealthChecker)

// WithDatabase adds the account database to readiness checks
func WithDatabase(db DatabasePinger) HealthOption {
	return func(h *HealthChecker) { h.db = db }
}

// WithRedis adds Redis to readiness checks
func WithRedis(client *redis.Client) HealthOption {
	return func(h *HealthChecker) { h.redis = client }
}

// WithBrokerSession reports the token broker session in readiness checks
func WithBrokerSession(session BrokerSession) HealthOption {
	return func(h *HealthChecker) { h.session = session }
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(version string, opts ...HealthOption) *HealthChecker {
	h := &HealthChecker{version: version, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	LatencyMS int64     `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Liveness returns a simple liveness probe (always returns 200 if server is running)
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, HealthStatus{
		Status:    StatusHealthy,
		Timestamp: h.now(),
		Version:   h.version,
	})
}

// Readiness returns a readiness probe (checks all dependencies)
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, status)
}

func writeHealth(w http.ResponseWriter, code int, status HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(status)
}

// Check performs a comprehensive health check. The database is required;
// Redis and the broker session only degrade the result.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    h.now(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus),
	}

	degrade := func() {
		if status.Status == StatusHealthy {
			status.Status = StatusDegraded
		}
	}

	if h.db != nil {
		dbStatus := h.probe(ctx, h.db.Ping)
		status.Dependencies["database"] = dbStatus
		if dbStatus.Status == StatusUnhealthy {
			status.Status = StatusUnhealthy
		}
	}

	if h.redis != nil {
		redisStatus := h.probe(ctx, func(ctx context.Context) error {
			return h.redis.Ping(ctx).Err()
		})
		status.Dependencies["redis"] = redisStatus
		if redisStatus.Status == StatusUnhealthy {
			degrade()
		}
	}

	if h.session != nil {
		state := h.session.State()
		brokerStatus := DependencyStatus{
			Status:    StatusHealthy,
			Message:   state.String(),
			Timestamp: h.now(),
		}
		if state == broker.StateFailed {
			brokerStatus.Status = StatusDegraded
			degrade()
		}
		status.Dependencies["broker"] = brokerStatus
	}

	return status
}

func (h *HealthChecker) probe(ctx context.Context, ping func(context.Context) error) DependencyStatus {
	start := time.Now()
	err := ping(ctx)
	status := DependencyStatus{
		Status:    StatusHealthy,
		LatencyMS: time.Since(start).Milliseconds(),
		Timestamp: h.now(),
	}
	if err != nil {
		status.Status = StatusUnhealthy
		status.Message = err.Error()
	}
	return status
}
