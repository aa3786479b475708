// Package api implements the HTTP surface of the accounts service.
//
// # Routes
//
//	POST   /user                         register an account (201)
//	POST   /user/authenticate            check a username/password pair
//	POST   /user/profile                 update the Basic-authenticated account
//	DELETE /user                         delete the Basic-authenticated account
//	POST   /user/reset-password          mail a single-use reset link (rate limited)
//	POST   /user/reset-password/verify   redeem a reset token (rate limited)
//	POST   /token                        fetch a platform token for client credentials
//	PUT    /token                        refresh a platform token
//	GET    /healthz, /readyz, /metrics   operational endpoints, when configured
//
// Every response is a JSON envelope:
//
//	{"status": "success" | "error", "message": "...", "result": {...}}
//
// # Error Mapping
//
// Validation errors answer 400, unknown accounts 404, bad credentials and reset
// tokens 401, duplicate usernames or emails 409. Authorization server rejections
// pass their 4xx status through; malformed responses, network failures and
// platform registration failures answer 502. Anything else is a logged 500.
//
// # Usage
//
//	server := api.NewServer(service, brokerClient, logger,
//		api.WithResetRateLimit(resetLimiter),
//		api.WithMetrics(metrics, registry),
//	)
//	http.ListenAndServe(":8080", server)
//
// # Related Packages
//
//   - pkg/accounts: Account lifecycle
//   - pkg/broker: Token broker client
//   - pkg/middleware: Basic auth and rate limiting
package api
