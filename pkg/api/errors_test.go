package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platinummonkey/vdjaccounts/pkg/accounts"
	"github.com/platinummonkey/vdjaccounts/pkg/broker"
	"github.com/platinummonkey/vdjaccounts/pkg/credential"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &accounts.ValidationError{Field: "email", Message: "is required"}, http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("register: %w", &accounts.ValidationError{Field: "username"}), http.StatusBadRequest},
		{"not found", accounts.ErrAccountNotFound, http.StatusNotFound},
		{"invalid password", accounts.ErrInvalidPassword, http.StatusUnauthorized},
		{"reset token", accounts.ErrResetTokenInvalid, http.StatusUnauthorized},
		{"username taken", accounts.ErrUsernameTaken, http.StatusConflict},
		{"email taken", accounts.ErrEmailTaken, http.StatusConflict},
		{"platform", fmt.Errorf("%w: boom", accounts.ErrPlatformRegistration), http.StatusBadGateway},
		{"auth failure 4xx", &broker.AuthFailure{StatusCode: 400}, http.StatusBadRequest},
		{"auth failure 5xx", &broker.AuthFailure{StatusCode: 503}, http.StatusBadGateway},
		{"malformed", fmt.Errorf("%w: missing result", broker.ErrMalformedResponse), http.StatusBadGateway},
		{"network", &broker.NetworkError{Err: errors.New("reset")}, http.StatusBadGateway},
		{"corrupt credential", fmt.Errorf("stored credential for x: %w", credential.ErrInvalidCredentialFormat), http.StatusInternalServerError},
		{"other", errors.New("disk full"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestMessageFor_HidesInternals(t *testing.T) {
	assert.Equal(t, "Internal Server Error", messageFor(errors.New("pq: connection refused"), http.StatusInternalServerError))
	assert.Equal(t, "platform registration failed",
		messageFor(fmt.Errorf("%w: 500 from platform", accounts.ErrPlatformRegistration), http.StatusBadGateway))
	assert.Equal(t, "authorization server unavailable",
		messageFor(&broker.NetworkError{Err: errors.New("dial tcp")}, http.StatusBadGateway))
	assert.Equal(t, "username already taken", messageFor(accounts.ErrUsernameTaken, http.StatusConflict))
}
