package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/vdjaccounts/pkg/accounts"
	"github.com/platinummonkey/vdjaccounts/pkg/broker"
)

// compile-time checks that Metrics plugs into the recorders
var (
	_ accounts.Recorder    = (*Metrics)(nil)
	_ broker.Recorder      = (*Metrics)(nil)
	_ broker.StateObserver = (*Metrics)(nil)
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	registry := prometheus.NewRegistry()
	return NewMetrics(registry), registry
}

func TestNewMetrics(t *testing.T) {
	m, registry := newTestMetrics(t)

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	// Only the broker state gauge has samples before any traffic
	assert.Contains(t, names, "vdjaccounts_broker_session_state")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BrokerState.WithLabelValues("unauthenticated")))
}

func TestNewMetrics_DoubleRegistrationPanics(t *testing.T) {
	registry := prometheus.NewRegistry()
	NewMetrics(registry)
	assert.Panics(t, func() { NewMetrics(registry) })
}

func TestMetrics_RecordBrokerRequest(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordBrokerRequest("fetch", "success", 150*time.Millisecond)
	m.RecordBrokerRequest("fetch", "success", 50*time.Millisecond)
	m.RecordBrokerRequest("refresh", "auth_failure", 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BrokerRequestsTotal.WithLabelValues("fetch", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BrokerRequestsTotal.WithLabelValues("refresh", "auth_failure")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.BrokerRequestDuration))
}

func TestMetrics_RecordBrokerState(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordBrokerState("authenticated")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BrokerState.WithLabelValues("authenticated")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BrokerState.WithLabelValues("unauthenticated")))
	assert.Equal(t, len(brokerStates), testutil.CollectAndCount(m.BrokerState))

	m.RecordBrokerState("failed")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BrokerState.WithLabelValues("authenticated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BrokerState.WithLabelValues("failed")))
}

func TestMetrics_AccountOperations(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordAccountOperation("register", "success")
	m.RecordAccountOperation("register", "conflict")
	m.RecordAccountOperation("register", "conflict")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AccountOperationsTotal.WithLabelValues("register", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AccountOperationsTotal.WithLabelValues("register", "conflict")))
}

func TestMetrics_AuthCache(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordAuthCache(true)
	m.RecordAuthCache(false)
	m.RecordAuthCache(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthCacheTotal.WithLabelValues("miss")))
}

func TestMetrics_RegisterDBStats(t *testing.T) {
	m, registry := newTestMetrics(t)
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, m.RegisterDBStats(db, "accounts"))

	families, err := registry.Gather()
	require.NoError(t, err)
	found := false
	for _, f := range families {
		if f.GetName() == "go_sql_max_open_connections" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	m, _ := newTestMetrics(t)

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(m))
	router.HandleFunc("/user/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"status":"success"}`))
	}).Methods("POST")

	for _, name := range []string{"alice", "bob"} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest("POST", "/user/"+name, nil))
		assert.Equal(t, http.StatusCreated, rr.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/user/{name}", "201")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
}

func TestHTTPMetricsMiddleware_Unmatched(t *testing.T) {
	m, _ := newTestMetrics(t)
	h := HTTPMetricsMiddleware(m)(http.NotFoundHandler())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/random/path", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "404")))
}

func TestMetricsHandler(t *testing.T) {
	m, registry := newTestMetrics(t)
	m.RecordAccountOperation("delete", "success")

	rr := httptest.NewRecorder()
	MetricsHandler(registry).ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), `vdjaccounts_account_operations_total{operation="delete",outcome="success"} 1`))
}
