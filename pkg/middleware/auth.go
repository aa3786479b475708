package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/vdjaccounts/pkg/accounts"
	"github.com/platinummonkey/vdjaccounts/pkg/contextkeys"
	"github.com/platinummonkey/vdjaccounts/pkg/httputil"
)

// DefaultRealm is the Basic auth realm advertised in challenges
const DefaultRealm = "vdjaccounts"

// Authenticator checks a username and password pair
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*accounts.Account, error)
}

// AuthMiddleware authenticates account requests with HTTP Basic credentials
type AuthMiddleware struct {
	authenticator Authenticator
	realm         string
	logger        *logrus.Logger
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authenticator Authenticator, logger *logrus.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		authenticator: authenticator,
		realm:         DefaultRealm,
		logger:        logger,
	}
}

// Handler wraps an HTTP handler with Basic authentication.
// The authenticated account is stored under contextkeys.AccountKey.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := httputil.BasicAuthOrError(w, r, m.realm)
		if !ok {
			return
		}

		account, err := m.authenticator.Authenticate(r.Context(), username, password)
		switch {
		case err == nil:
		case errors.Is(err, accounts.ErrAccountNotFound),
			errors.Is(err, accounts.ErrInvalidPassword),
			accounts.IsValidationError(err):
			m.unauthorized(w)
			return
		default:
			requestID, _ := contextkeys.GetRequestID(r.Context())
			m.logger.WithError(err).WithFields(logrus.Fields{
				"username":   username,
				"request_id": requestID,
			}).Error("Authentication failed")
			httputil.WriteInternalError(w)
			return
		}

		ctx := contextkeys.WithAccount(r.Context(), account)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// unknown user and wrong password share one message
func (m *AuthMiddleware) unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+m.realm+`"`)
	httputil.WriteUnauthorized(w, "invalid username or password")
}

// GetAccount extracts the authenticated account from the request
func GetAccount(r *http.Request) *accounts.Account {
	account, ok := contextkeys.GetAccount(r.Context()).(*accounts.Account)
	if !ok {
		return nil
	}
	return account
}
