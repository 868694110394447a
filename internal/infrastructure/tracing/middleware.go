package tracing

import (
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/RemoteRelay/backend/internal/shared/id"
)

// HTTPMiddleware creates Gin middleware for HTTP tracing
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID, parentID := ExtractTraceContext(c.Request.Header)
		ctx := WithTraceContext(c.Request.Context(), traceID, parentID)

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}

		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+name)
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.path", c.Request.URL.Path)
		span.SetTag("http.client_ip", c.ClientIP())

		reqID := requestID(c.GetHeader(HeaderRequestID))
		span.SetTag("request_id", reqID.String())

		c.Request = c.Request.WithContext(ctx)

		c.Header(HeaderTraceID, string(span.TraceID))
		c.Header(HeaderSpanID, string(span.SpanID))
		c.Header(HeaderRequestID, reqID.String())

		c.Next()

		span.SetStatus(c.Writer.Status())
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}

		span.Finish()
		tracer.Submit(span)
	}
}

// requestID keeps a caller-supplied ID only when it parses as one of ours.
func requestID(inbound string) id.RequestID {
	if inbound != "" && len(inbound) <= 64 && id.IsValid(inbound) {
		return id.RequestID(inbound)
	}
	return id.NewRequestID()
}
