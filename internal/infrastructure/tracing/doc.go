/*
Package tracing provides lightweight request tracing for the relay.

# Overview

Every inbound request gets a span. The trace ID is taken from the caller's
X-Trace-ID header when present, otherwise generated, and is echoed back in the
response headers. The relay core forwards the same context to the device call
so one trace covers browser, relay and device.

# Usage

	tracer := tracing.New("relay", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "device.keypress")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
	span.SetTag("device", addr)

	// Outbound propagation
	tracing.InjectTraceContext(ctx, req.Header)

# Trace Format

- X-Trace-ID: identifier for the entire request flow
- X-Span-ID: identifier for the current operation
- X-Request-ID: req_<ULID> for this request; a valid caller value is kept

Spans are buffered (1000) and logged asynchronously; a full buffer drops spans
rather than blocking the request.
*/
package tracing
