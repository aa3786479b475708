package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/vdjaccounts/pkg/accounts"
	"github.com/platinummonkey/vdjaccounts/pkg/broker"
	"github.com/platinummonkey/vdjaccounts/pkg/credential"
	"github.com/platinummonkey/vdjaccounts/pkg/httputil"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// captureNotifier records reset tokens instead of mailing them
type captureNotifier struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (n *captureNotifier) SendPasswordReset(ctx context.Context, account *accounts.Account, token string, expiresAt time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.tokens == nil {
		n.tokens = make(map[string]string)
	}
	n.tokens[account.Username] = token
	return nil
}

func (n *captureNotifier) tokenFor(username string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tokens[username]
}

type fakeBroker struct {
	token *broker.Token
	err   error

	mu    sync.Mutex
	calls []string
}

func (b *fakeBroker) FetchToken(ctx context.Context, clientID, clientSecret string) (*broker.Token, error) {
	b.record("fetch:" + clientID + ":" + clientSecret)
	return b.token, b.err
}

func (b *fakeBroker) RefreshToken(ctx context.Context, clientID, refreshToken string) (*broker.Token, error) {
	b.record("refresh:" + clientID + ":" + refreshToken)
	return b.token, b.err
}

func (b *fakeBroker) record(call string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
}

type testEnv struct {
	server   *Server
	store    *accounts.MemoryStore
	notifier *captureNotifier
	broker   *fakeBroker
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	hasher := credential.NewHasher(credential.WithParams(credential.Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 32}))
	store := accounts.NewMemoryStore()
	notifier := &captureNotifier{}
	service := accounts.NewService(store, hasher, quietLogger(), accounts.WithNotifier(notifier))
	tokens := &fakeBroker{}

	return &testEnv{
		server:   NewServer(service, tokens, quietLogger(), opts...),
		store:    store,
		notifier: notifier,
		broker:   tokens,
	}
}

func (e *testEnv) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), "body: %s", rr.Body.String())
	return rr, env
}

func jsonRequest(t *testing.T, method, path string, body interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (e *testEnv) registerAlice(t *testing.T) {
	t.Helper()
	rr, env := e.do(t, jsonRequest(t, "POST", "/user", accounts.RegisterRequest{
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "s3cret",
		FirstName: "Alice",
		Country:   "NZ",
	}))
	require.Equal(t, http.StatusCreated, rr.Code, env.Message)
	require.Equal(t, httputil.StatusSuccess, env.Status)
}
