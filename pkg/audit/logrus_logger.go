package audit

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogrusLogger writes audit events to a logrus logger as structured entries
// tagged audit=true
type LogrusLogger struct {
	logger *logrus.Logger
}

// NewLogrusLogger creates an audit logger backed by logger
func NewLogrusLogger(logger *logrus.Logger) *LogrusLogger {
	return &LogrusLogger{logger: logger}
}

// Log writes the event at Info, or Warn when it did not succeed
func (l *LogrusLogger) Log(_ context.Context, event *Event) error {
	fields := logrus.Fields{
		"audit":      true,
		"event_type": event.EventType,
		"status":     event.Status,
	}
	if event.Username != "" {
		fields["username"] = event.Username
	}
	if event.IPAddress != "" {
		fields["ip_address"] = event.IPAddress
	}
	if event.RequestID != "" {
		fields["request_id"] = event.RequestID
	}
	if event.StatusCode != 0 {
		fields["status_code"] = event.StatusCode
	}
	if event.ErrorMessage != "" {
		fields["error_message"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := l.logger.WithFields(fields).WithTime(event.Timestamp)
	message := event.Message
	if message == "" {
		message = string(event.EventType)
	}
	if event.Status == EventStatusSuccess {
		entry.Info(message)
	} else {
		entry.Warn(message)
	}
	return nil
}

// Close is a no-op
func (l *LogrusLogger) Close() error {
	return nil
}
