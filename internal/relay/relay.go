package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/RemoteRelay/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/RemoteRelay/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/RemoteRelay/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/RemoteRelay/backend/internal/infrastructure/tracing"
)

const (
	emptyBodyReply  = "OK"
	plainTextType   = "text/plain; charset=utf-8"
	defaultBodyType = "application/octet-stream"
)

// Config holds outbound call settings.
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Relay forwards control commands to devices. It is safe for concurrent use
// and keeps no per-request state.
type Relay struct {
	cfg      Config
	client   *resty.Client
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
	breakers *resilience.Group
}

// New creates a relay using the pooled default transport.
func New(cfg Config) *Relay {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	logger := logging.NewNop()
	return &Relay{
		cfg:    cfg,
		client: newClient(nil, cfg.UserAgent, logger.Sugar()),
		logger: logger,
	}
}

// WithTransport replaces the outbound round tripper.
func (r *Relay) WithTransport(rt http.RoundTripper) *Relay {
	r.client.SetTransport(rt)
	return r
}

// WithLogger sets the logger.
func (r *Relay) WithLogger(logger *logging.Logger) *Relay {
	if logger != nil {
		r.logger = logger.Named("relay")
		r.client.SetLogger(r.logger.Sugar())
	}
	return r
}

// WithMetrics adds device call metrics.
func (r *Relay) WithMetrics(metrics *monitoring.Metrics) *Relay {
	r.metrics = metrics
	return r
}

// WithTracer records a span per device call.
func (r *Relay) WithTracer(tracer *tracing.Tracer) *Relay {
	r.tracer = tracer
	return r
}

// WithBreakers enables per-address circuit breaking.
func (r *Relay) WithBreakers(breakers *resilience.Group) *Relay {
	r.breakers = breakers
	return r
}

// Breakers returns the breaker group, or nil when breaking is off.
func (r *Relay) Breakers() *resilience.Group {
	return r.breakers
}

// Keypress sends POST /keypress/{key}.
func (r *Relay) Keypress(ctx context.Context, address, key string) (Outcome, error) {
	return r.forward(ctx, OpKeypress, address, key)
}

// Launch sends POST /launch/{appID}.
func (r *Relay) Launch(ctx context.Context, address, appID string) (Outcome, error) {
	return r.forward(ctx, OpLaunch, address, appID)
}

// Query sends GET /query/{queryPath}.
func (r *Relay) Query(ctx context.Context, address, queryPath string) (Outcome, error) {
	return r.forward(ctx, OpQuery, address, queryPath)
}

func (r *Relay) forward(ctx context.Context, op Operation, address, operand string) (Outcome, error) {
	req, err := NewRequest(op, address, operand)
	if err != nil {
		return Outcome{}, err
	}
	return r.Forward(ctx, req), nil
}

// Forward issues exactly one request to the device and classifies the
// result. req must come from NewRequest. The call outlives cancellation of
// ctx but not the configured timeout.
func (r *Relay) Forward(ctx context.Context, req Request) Outcome {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.Timeout)
	defer cancel()

	var span *tracing.Span
	if r.tracer != nil {
		span, ctx = r.tracer.StartSpan(ctx, "device."+req.Operation.String())
		span.SetTag("device.address", req.Address)
		span.SetTag("device.operand", req.Operand)
	}
	timer := monitoring.NewTimer(r.metrics, req.Operation.String())

	outcome := r.guarded(ctx, req)

	elapsed := timer.Stop(outcome.Kind.String())
	if span != nil {
		if outcome.Reached() {
			span.SetStatus(outcome.Response.StatusCode)
		} else {
			span.SetError(outcome.Err)
		}
		span.Finish()
		r.tracer.Submit(span)
	}

	log := r.logger.WithContext(ctx)
	if outcome.Reached() {
		log.Debug("Forwarded device command",
			zap.String("operation", req.Operation.String()),
			zap.String("address", req.Address),
			zap.String("operand", req.Operand),
			zap.Int("status", outcome.Response.StatusCode),
			zap.Duration("duration", elapsed))
	} else {
		log.Warn("Device unreachable",
			zap.String("operation", req.Operation.String()),
			zap.String("address", req.Address),
			zap.Error(outcome.Err),
			zap.Duration("duration", elapsed))
	}

	return outcome
}

// guarded applies the address's breaker, if any, around the call.
func (r *Relay) guarded(ctx context.Context, req Request) Outcome {
	if r.breakers == nil {
		return r.call(ctx, req)
	}

	breaker := r.breakers.Get(req.Address)
	done, err := breaker.Allow()
	if err != nil {
		return unreachable(err)
	}

	outcome := r.call(ctx, req)
	done(outcome.Reached())
	if r.metrics != nil {
		r.metrics.SetBreakerOpen(req.Address, breaker.State() == resilience.StateOpen)
	}
	return outcome
}

func (r *Relay) call(ctx context.Context, req Request) Outcome {
	header := http.Header{}
	tracing.InjectTraceContext(ctx, header)

	resp, err := r.client.R().
		SetContext(ctx).
		SetHeaderMultiValues(header).
		Execute(req.Operation.Method(), req.URL())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return unreachable(fmt.Errorf("no response within %s: %w", r.cfg.Timeout, err))
		}
		return unreachable(err)
	}

	return success(buildResponse(resp.StatusCode(), resp.Body(), resp.Header().Get("Content-Type")))
}

func buildResponse(status int, body []byte, contentType string) Response {
	if len(body) == 0 {
		if status >= 200 && status < 300 {
			return Response{StatusCode: status, Body: []byte(emptyBodyReply), ContentType: plainTextType}
		}
		if contentType == "" {
			contentType = plainTextType
		}
		return Response{StatusCode: status, Body: body, ContentType: contentType}
	}

	if contentType == "" {
		contentType = sniff(body)
	}
	return Response{StatusCode: status, Body: body, ContentType: contentType}
}

func sniff(body []byte) string {
	if mt := mimetype.Detect(body); mt != nil {
		return mt.String()
	}
	return defaultBodyType
}
