package api

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/vdjaccounts/pkg/accounts"
	"github.com/platinummonkey/vdjaccounts/pkg/broker"
	"github.com/platinummonkey/vdjaccounts/pkg/contextkeys"
	"github.com/platinummonkey/vdjaccounts/pkg/credential"
	"github.com/platinummonkey/vdjaccounts/pkg/httputil"
)

// statusFor maps a service or broker error onto an HTTP status
func statusFor(err error) int {
	var (
		validation *accounts.ValidationError
		authErr    *broker.AuthFailure
		netErr     *broker.NetworkError
	)

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, accounts.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, accounts.ErrInvalidPassword),
		errors.Is(err, accounts.ErrResetTokenInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, accounts.ErrUsernameTaken),
		errors.Is(err, accounts.ErrEmailTaken):
		return http.StatusConflict
	case errors.As(err, &authErr):
		if authErr.StatusCode >= 400 && authErr.StatusCode < 500 {
			return authErr.StatusCode
		}
		return http.StatusBadGateway
	case errors.Is(err, broker.ErrMalformedResponse),
		errors.As(err, &netErr),
		errors.Is(err, accounts.ErrPlatformRegistration):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the client-facing message for err. Internal details of
// 5xx failures stay in the log.
func messageFor(err error, status int) string {
	var authErr *broker.AuthFailure
	switch {
	case status == http.StatusInternalServerError:
		return http.StatusText(http.StatusInternalServerError)
	case errors.Is(err, accounts.ErrPlatformRegistration):
		return accounts.ErrPlatformRegistration.Error()
	case errors.As(err, &authErr):
		return "authorization server rejected the request"
	case status == http.StatusBadGateway:
		return "authorization server unavailable"
	default:
		return err.Error()
	}
}

// writeError logs server-side failures and writes the error envelope
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := statusFor(err)

	if status >= http.StatusInternalServerError {
		entry := s.log(r).WithError(err).WithField("operation", operation)
		if errors.Is(err, credential.ErrInvalidCredentialFormat) {
			entry = entry.WithField("corrupt_credential", true)
		}
		if status == http.StatusInternalServerError {
			entry.Error("Request failed")
		} else {
			entry.Warn("Upstream request failed")
		}
	} else {
		s.log(r).WithFields(logrus.Fields{
			"operation": operation,
			"status":    status,
		}).Debug(err.Error())
	}

	httputil.WriteErrorMessage(w, status, messageFor(err, status))
}

// log prefers the request-scoped entry set by the logging middleware
func (s *Server) log(r *http.Request) *logrus.Entry {
	if entry, ok := r.Context().Value(contextkeys.LoggerKey).(*logrus.Entry); ok {
		return entry
	}
	return logrus.NewEntry(s.logger)
}
