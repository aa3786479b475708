package audit

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/vdjaccounts/pkg/contextkeys"
)

func TestNewEvent(t *testing.T) {
	r := httptest.NewRequest("POST", "/user/authenticate", nil)
	r.Header.Set("User-Agent", "vdj-client/1.0")
	r = r.WithContext(contextkeys.WithRequestID(r.Context(), "req-123"))

	event := NewEvent(r, "203.0.113.9", EventTypeAuthLoginFailed, EventStatusFailure)

	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, EventTypeAuthLoginFailed, event.EventType)
	assert.Equal(t, EventStatusFailure, event.Status)
	assert.Equal(t, "203.0.113.9", event.IPAddress)
	assert.Equal(t, "vdj-client/1.0", event.UserAgent)
	assert.Equal(t, "req-123", event.RequestID)
	assert.Equal(t, "POST", event.Method)
	assert.Equal(t, "/user/authenticate", event.Path)
	assert.NotNil(t, event.Metadata)
}

func TestNewEvent_NoRequest(t *testing.T) {
	event := NewEvent(nil, "", EventTypeAccountDelete, EventStatusSuccess)
	assert.Empty(t, event.Method)
	assert.Empty(t, event.RequestID)
}

func TestNop(t *testing.T) {
	logger := Nop()
	assert.NoError(t, logger.Log(context.Background(), &Event{}))
	assert.NoError(t, logger.Close())
}

func TestLogrusLogger(t *testing.T) {
	base, hook := test.NewNullLogger()
	logger := NewLogrusLogger(base)

	success := NewEvent(nil, "203.0.113.9", EventTypeAccountRegister, EventStatusSuccess)
	success.Username = "alice"
	success.Metadata["country"] = "NZ"
	require.NoError(t, logger.Log(context.Background(), success))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "account.register", entry.Message)
	assert.Equal(t, true, entry.Data["audit"])
	assert.Equal(t, "alice", entry.Data["username"])
	assert.Equal(t, "NZ", entry.Data["country"])

	failure := NewEvent(nil, "", EventTypeAuthLoginFailed, EventStatusFailure)
	failure.Message = "login rejected"
	failure.ErrorMessage = "invalid password"
	require.NoError(t, logger.Log(context.Background(), failure))

	entry = hook.LastEntry()
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, "login rejected", entry.Message)
	assert.Equal(t, "invalid password", entry.Data["error_message"])
	assert.NotContains(t, entry.Data, "ip_address")

	assert.NoError(t, logger.Close())
}
