// Package middleware provides HTTP middleware for account authentication and
// rate limiting.
//
// # Middleware Components
//
// AuthMiddleware: HTTP Basic authentication against the account service
//
//	auth := middleware.NewAuthMiddleware(accountService, logger)
//	router.Handle("/user/profile", auth.Handler(profileHandler))
//	// handlers read the caller with middleware.GetAccount(r)
//
// RateLimitMiddleware: per client IP limits over any Limiter
//
//	limiter := middleware.NewRateLimiter(middleware.ResetRateLimitConfig())
//	rl := middleware.NewRateLimitMiddleware(limiter, cfg, "reset", logger)
//
// DistributedRateLimiter: Redis-backed Limiter shared across instances
//
//	limiter := middleware.NewDistributedRateLimiter(redisClient, cfg, "vdj:ratelimit")
//
// Redis errors fail open by default; WithFailClosed answers 503 instead.
package middleware
