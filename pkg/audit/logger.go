package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/platinummonkey/vdjaccounts/pkg/contextkeys"
)

// Logger is the interface for audit logging
type Logger interface {
	// Log records an audit event
	Log(ctx context.Context, event *Event) error

	// Close closes the logger and flushes any buffered events
	Close() error
}

// Nop returns a logger that discards every event
func Nop() Logger {
	return noOpLogger{}
}

type noOpLogger struct{}

func (noOpLogger) Log(context.Context, *Event) error { return nil }

func (noOpLogger) Close() error { return nil }

// NewEvent builds an event carrying the request context of r. ip is the
// resolved client address; r may be nil for events raised outside a request.
func NewEvent(r *http.Request, ip string, eventType EventType, status EventStatus) *Event {
	event := &Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		Status:    status,
		IPAddress: ip,
		Metadata:  make(map[string]interface{}),
	}

	if r != nil {
		event.UserAgent = r.UserAgent()
		event.Method = r.Method
		event.Path = r.URL.Path
		if id, ok := contextkeys.GetRequestID(r.Context()); ok {
			event.RequestID = id
		}
	}

	return event
}
