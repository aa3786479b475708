package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/vdjaccounts/pkg/accounts"
	"github.com/platinummonkey/vdjaccounts/pkg/credential"
)

type fakeAuthenticator struct {
	accounts map[string]string
	err      error
	calls    int
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, username, password string) (*accounts.Account, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	stored, ok := f.accounts[username]
	if !ok {
		return nil, accounts.ErrAccountNotFound
	}
	if stored != password {
		return nil, accounts.ErrInvalidPassword
	}
	return &accounts.Account{ID: "id-" + username, Username: username}, nil
}

func newTestAuth(t *testing.T, auth Authenticator) (*AuthMiddleware, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	return NewAuthMiddleware(auth, logger), hook
}

func echoAccount() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		account := GetAccount(r)
		if account == nil {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(account.Username))
	})
}

func TestAuthMiddleware_Handler(t *testing.T) {
	auth := &fakeAuthenticator{accounts: map[string]string{"alice": "s3cret"}}
	m, _ := newTestAuth(t, auth)

	tests := []struct {
		name       string
		setAuth    func(r *http.Request)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid credentials",
			setAuth:    func(r *http.Request) { r.SetBasicAuth("alice", "s3cret") },
			wantStatus: http.StatusOK,
			wantBody:   "alice",
		},
		{
			name:       "missing header",
			setAuth:    func(r *http.Request) {},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "bearer instead of basic",
			setAuth:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong password",
			setAuth:    func(r *http.Request) { r.SetBasicAuth("alice", "nope") },
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown user",
			setAuth:    func(r *http.Request) { r.SetBasicAuth("bob", "s3cret") },
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/user/profile", nil)
			tt.setAuth(req)
			w := httptest.NewRecorder()

			m.Handler(echoAccount()).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, `Basic realm="vdjaccounts"`, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestAuthMiddleware_SameMessageForUnknownAndWrong(t *testing.T) {
	m, _ := newTestAuth(t, &fakeAuthenticator{accounts: map[string]string{"alice": "s3cret"}})

	body := func(user, pass string) string {
		req := httptest.NewRequest("DELETE", "/user", nil)
		req.SetBasicAuth(user, pass)
		w := httptest.NewRecorder()
		m.Handler(echoAccount()).ServeHTTP(w, req)
		return w.Body.String()
	}

	assert.Equal(t, body("alice", "wrong"), body("nobody", "wrong"))
}

func TestAuthMiddleware_CorruptCredential(t *testing.T) {
	auth := &fakeAuthenticator{err: credential.ErrInvalidCredentialFormat}
	m, hook := newTestAuth(t, auth)

	req := httptest.NewRequest("POST", "/user/profile", nil)
	req.SetBasicAuth("alice", "s3cret")
	w := httptest.NewRecorder()
	m.Handler(echoAccount()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "error", body["status"])
	assert.NotContains(t, body["message"], "credential")

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "alice", hook.LastEntry().Data["username"])
}

func TestAuthMiddleware_StoreError(t *testing.T) {
	m, _ := newTestAuth(t, &fakeAuthenticator{err: errors.New("connection refused")})

	req := httptest.NewRequest("POST", "/user/profile", nil)
	req.SetBasicAuth("alice", "s3cret")
	w := httptest.NewRecorder()
	m.Handler(echoAccount()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetAccount_Absent(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	assert.Nil(t, GetAccount(req))
}
