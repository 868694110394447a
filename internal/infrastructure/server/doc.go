// Package server assembles the relay's HTTP server.
//
// This package wires:
//   - HTTP routing with Gin framework
//   - Middleware stack (recovery, tracing, metrics, CORS, rate limiting)
//   - The device relay and its optional per-device circuit breakers
//   - Prometheus and JSON metrics endpoints
//   - Static UI serving for unmatched paths
//   - gzip response compression
//
// Server Lifecycle:
//  1. Load configuration from file, environment and flags
//  2. Initialize logger (production or development)
//  3. Build relay, router and middleware
//  4. Start HTTP server
//  5. Graceful shutdown on signal, waiting for in-flight forwards
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.NewServer(cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	go srv.Run()
//	...
//	srv.Shutdown(ctx)
package server
