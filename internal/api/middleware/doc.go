// Package middleware provides the HTTP middleware in front of the relay routes.
//
// Middleware stack:
//   - CORS: lets the remote UI, served from any origin, call the relay
//   - RateLimit: opt-in per-IP token bucket limiting with idle eviction
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	router.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
