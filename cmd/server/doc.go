// Package main is the entry point for the remote-control relay.
//
// The relay lets a browser-based remote drive a media player on the local
// network. The browser calls the relay; the relay forwards each command to
// the device's control port and returns the device's answer.
//
// Architecture:
//
//	Browser remote → Relay (:3000) → Device control port (:8060)
//
// The server provides:
//   - Key press, app launch and query forwarding
//   - Device identity summary
//   - Optional static hosting of the remote UI
//   - Health, Prometheus and JSON metrics endpoints
//
// Configuration:
//   - Defaults
//   - Config file (-config or CONFIG_FILE), YAML or TOML
//   - Environment variables (12-factor)
//   - CLI flags (override everything else)
//
// Usage:
//
//	# Production mode
//	./server -port 3000
//
//	# Development mode (colored logs, debug level)
//	./server -dev -static ../ui/dist
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
