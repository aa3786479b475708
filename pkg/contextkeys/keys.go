// Package contextkeys provides centralized context key definitions
//
// All request-scoped values shared between middleware and handlers are keyed
// here so producers and consumers agree on names and types.
//
// USAGE PATTERN:
//
//	ctx = contextkeys.WithRequestID(ctx, id)
//	id := contextkeys.GetRequestID(ctx)
package contextkeys

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Key is the type for context keys to prevent collisions
type Key string

const (
	// AccountKey contains the authenticated account
	// Set by: middleware.BasicAuth (pkg/middleware/auth.go)
	// Required by: profile update and account deletion handlers
	// Type: *accounts.Account
	AccountKey Key = "account"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: request logger, error responses
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains a request scoped logrus entry
	// Set by: httputil.LoggingMiddleware
	// Used by: handlers that log with request fields attached
	// Type: *logrus.Entry
	LoggerKey Key = "logger"

	// RequestStartTimeKey contains request start timestamp
	// Set by: httputil.LoggingMiddleware
	// Type: time.Time
	RequestStartTimeKey Key = "request_start_time"
)

// WithAccount adds the authenticated account to the context
func WithAccount(ctx context.Context, account interface{}) context.Context {
	return context.WithValue(ctx, AccountKey, account)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithLogger adds a request scoped logger to the context
func WithLogger(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, LoggerKey, entry)
}

// WithRequestStartTime adds request start time to the context
func WithRequestStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, RequestStartTimeKey, t)
}

// GetAccount retrieves the authenticated account from the context.
// Callers assert the concrete type.
func GetAccount(ctx context.Context) interface{} {
	return ctx.Value(AccountKey)
}

// GetRequestID retrieves request ID from the context
func GetRequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(RequestIDKey).(string)
	return id, ok
}

// GetLogger retrieves the request logger, falling back to the standard logger
func GetLogger(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(LoggerKey).(*logrus.Entry); ok && entry != nil {
		return entry
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// GetRequestStartTime retrieves request start time from the context
func GetRequestStartTime(ctx context.Context) (time.Time, bool) {
	t, ok := ctx.Value(RequestStartTimeKey).(time.Time)
	return t, ok
}
