package audit

import (
	"context"
	"errors"
)

// MultiLogger fans every event out to several loggers. A failing logger does
// not stop delivery to the others.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a logger that writes to all of loggers
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log logs the event to every logger and joins their errors
func (m *MultiLogger) Log(ctx context.Context, event *Event) error {
	var errs []error
	for _, logger := range m.loggers {
		if err := logger.Log(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every logger
func (m *MultiLogger) Close() error {
	var errs []error
	for _, logger := range m.loggers {
		if err := logger.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of loggers
func (m *MultiLogger) Len() int {
	return len(m.loggers)
}
