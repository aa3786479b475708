// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// Every endpoint answers with the same envelope:
//
//	{"status": "success", "result": {...}}
//	{"status": "error", "message": "..."}
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, http.StatusOK, account)
//	httputil.WriteSuccessMessage(w, "Password reset email sent", nil)
//	httputil.WriteCreated(w, account)
//
// Error responses:
//
//	httputil.WriteError(w, http.StatusBadRequest, err)
//	httputil.WriteUnauthorized(w, "invalid credentials")
//	httputil.WriteBadGateway(w, "token broker unavailable")
//
// # Request Parsing
//
//	var req accounts.RegisterRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
//	clientID, secret, ok := httputil.BasicAuthOrError(w, r, "vdjaccounts")
//	refresh, ok := httputil.ParseFormValueOrError(w, r, "refresh_token")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.TimeoutMiddleware(30*time.Second),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
//
// # Related Packages
//
//   - pkg/middleware: Basic authentication and rate limiting
//   - pkg/contextkeys: request scoped values set by these middlewares
package httputil
