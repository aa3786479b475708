// Package audit records security relevant account events.
//
// # Overview
//
// The API layer raises one event per account operation: registration, login
// attempts, profile updates, deletion, password reset requests and
// completions, and token passthrough calls. Events carry the actor, client
// address, request id and outcome. Passwords and tokens are never recorded.
//
// # Sinks
//
//   - LogrusLogger: structured log entries tagged audit=true
//   - FileLogger: JSON lines with size based rotation
//   - DBLogger: the account_audit_events table, searchable with Search
//   - MultiLogger: fan out to several of the above
//
// # Usage Example
//
//	logger := audit.NewMultiLogger(audit.NewLogrusLogger(log), dbLogger)
//	event := audit.NewEvent(r, ip, audit.EventTypeAuthLogin, audit.EventStatusSuccess)
//	event.Username = "alice"
//	_ = logger.Log(ctx, event)
package audit
