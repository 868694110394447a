// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Loggers pick up trace and span IDs from a request context via WithContext,
// so relay log lines can be joined with the span emitted by the tracing
// middleware.
//
// Example Usage:
//
//	logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
//	logger.Info("Relay starting", zap.String("port", "3000"))
//	logger.WithContext(ctx).Warn("Device unreachable", zap.Error(err))
package logging
