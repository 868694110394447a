/*
Package monitoring provides Prometheus metrics for the relay.

# Overview

Metrics live on a private registry owned by Metrics, exposed through
Metrics.Handler. Tracked:

- HTTP requests by route template (count, latency, response size)
- Device calls by operation and outcome (success, rejected, unreachable)
- Per-device circuit breaker state
- Uptime plus the standard Go and process collectors

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics, "keypress")
	// ... call the device ...
	timer.Stop("success")
*/
package monitoring
