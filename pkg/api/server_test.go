package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/vdjaccounts/pkg/middleware"
	"github.com/platinummonkey/vdjaccounts/pkg/observability"
)

// TestRegisterRoutes verifies all routes are registered
func TestRegisterRoutes(t *testing.T) {
	registry := prometheus.NewRegistry()
	env := newTestEnv(t,
		WithHealthChecker(observability.NewHealthChecker("test")),
		WithMetrics(observability.NewMetrics(registry), registry),
	)

	tests := []struct {
		method string
		path   string
	}{
		{"POST", "/user"},
		{"POST", "/user/authenticate"},
		{"POST", "/user/profile"},
		{"DELETE", "/user"},
		{"POST", "/user/reset-password"},
		{"POST", "/user/reset-password/verify"},
		{"POST", "/token"},
		{"PUT", "/token"},
		{"GET", "/healthz"},
		{"GET", "/readyz"},
		{"GET", "/metrics"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			var match mux.RouteMatch
			assert.True(t, env.server.Router().Match(req, &match), "Route %s %s should be registered", tt.method, tt.path)
		})
	}
}

func TestNotFound_Envelope(t *testing.T) {
	env := newTestEnv(t)

	rr, body := env.do(t, httptest.NewRequest("GET", "/nothing/here", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "no route for GET /nothing/here", body.Message)
}

func TestMethodNotAllowed_Envelope(t *testing.T) {
	env := newTestEnv(t)

	rr, body := env.do(t, httptest.NewRequest("GET", "/user", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, "error", body.Status)
}

func TestMetrics_InstrumentsRoutes(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)
	env := newTestEnv(t, WithMetrics(metrics, registry))

	env.registerAlice(t)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues("POST", "/user", "201")))

	rr := httptest.NewRecorder()
	env.server.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "vdjaccounts_http_requests_total")
}

func TestHealthRoutes(t *testing.T) {
	env := newTestEnv(t, WithHealthChecker(observability.NewHealthChecker("1.0.0")))

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := httptest.NewRecorder()
		env.server.ServeHTTP(rr, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Contains(t, rr.Body.String(), `"status":"healthy"`)
	}
}

func TestResetRateLimit(t *testing.T) {
	config := &middleware.RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Hour}
	limiter := middleware.NewRateLimiter(config)
	env := newTestEnv(t, WithResetRateLimit(
		middleware.NewRateLimitMiddleware(limiter, config, "reset", quietLogger()),
	))

	var codes []int
	for i := 0; i < 3; i++ {
		req := jsonRequest(t, "POST", "/user/reset-password", ResetRequest{Email: "someone@example.com"})
		req.RemoteAddr = "203.0.113.7:5000"
		rr, _ := env.do(t, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// the verify route shares the bucket
	req := jsonRequest(t, "POST", "/user/reset-password/verify", ResetVerifyRequest{Token: "x", Password: "y"})
	req.RemoteAddr = "203.0.113.7:5000"
	rr, _ := env.do(t, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	// other clients are unaffected
	req = jsonRequest(t, "POST", "/user/reset-password", ResetRequest{Email: "someone@example.com"})
	req.RemoteAddr = "198.51.100.1:5000"
	rr, _ = env.do(t, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestServer_Handler(t *testing.T) {
	env := newTestEnv(t)
	handler := env.server.Handler(HandlerConfig{
		RequestTimeout: time.Second,
		MaxBodyBytes:   1 << 20,
		CORSOrigins:    []string{"https://vdj.example.com"},
	})

	rr := httptest.NewRecorder()
	req := jsonRequest(t, "POST", "/user/authenticate", AuthenticateRequest{Username: "ghost", Password: "pw"})
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestServer_Handler_BodyLimit(t *testing.T) {
	env := newTestEnv(t)
	handler := env.server.Handler(HandlerConfig{MaxBodyBytes: 16})

	rr := httptest.NewRecorder()
	req := jsonRequest(t, "POST", "/user", map[string]string{"username": strings.Repeat("a", 64)})
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServer_Handler_RecoversPanics(t *testing.T) {
	env := newTestEnv(t)
	env.server.Router().HandleFunc("/boom", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := env.server.Handler(HandlerConfig{})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestServer_Handler_Deadline(t *testing.T) {
	env := newTestEnv(t)
	var deadline time.Time
	env.server.Router().HandleFunc("/deadline", func(w http.ResponseWriter, r *http.Request) {
		deadline, _ = r.Context().Deadline()
		w.WriteHeader(http.StatusNoContent)
	})

	env.server.Handler(HandlerConfig{RequestTimeout: time.Minute}).
		ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/deadline", nil).WithContext(context.Background()))

	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}
