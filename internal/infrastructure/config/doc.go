// Package config provides 12-factor configuration management for the relay.
//
// Configuration is layered: built-in defaults, an optional YAML or TOML file,
// then environment variables. CLI flags in cmd/server override all of them.
//
// Configuration Sections:
//   - Server: listen port and host, static UI directory, compression
//   - Device: outbound timeout, user agent, per-device circuit breaker
//   - CORS: allowed browser origins
//   - Logging: log level and output format
//   - RateLimit: opt-in per-IP rate limiting
//   - Metrics: Prometheus endpoint toggle
//
// Example Usage:
//
//	cfg, err := config.LoadFile(os.Getenv("CONFIG_FILE"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("Relay listening on %s\n", cfg.Server.Addr())
//
// Environment Variables:
//   - PORT, HOST, STATIC_DIR, COMPRESSION_ENABLED, SHUTDOWN_TIMEOUT
//   - DEVICE_TIMEOUT, DEVICE_USER_AGENT
//   - DEVICE_BREAKER_ENABLED, DEVICE_BREAKER_FAILURES, DEVICE_BREAKER_COOLDOWN,
//     DEVICE_BREAKER_IDLE_TTL
//   - CORS_ALLOW_ORIGINS (comma separated)
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_ENABLED, RATE_LIMIT_RPS, RATE_LIMIT_BURST
//   - METRICS_ENABLED
package config
