package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"go.uber.org/zap"

	api "github.com/GriffinCanCode/RemoteRelay/backend/internal/api/http"
	"github.com/GriffinCanCode/RemoteRelay/backend/internal/api/middleware"
	"github.com/GriffinCanCode/RemoteRelay/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/RemoteRelay/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/RemoteRelay/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/RemoteRelay/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/RemoteRelay/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/RemoteRelay/backend/internal/relay"
)

const readHeaderTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	handler    http.Handler
	httpServer *http.Server
	tracer     *tracing.Tracer
	logger     *logging.Logger
	metrics    *monitoring.Metrics
}

// Option customizes server construction
type Option func(*options)

type options struct {
	logger    *logging.Logger
	transport http.RoundTripper
}

// WithLogger overrides the logger derived from the logging config.
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDeviceTransport replaces the transport used to reach devices.
func WithDeviceTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)
	}

	logger.Info("Initializing relay server",
		zap.String("addr", cfg.Server.Addr()),
		zap.Duration("device_timeout", cfg.Device.Timeout.Std()),
		zap.Bool("breaker", cfg.Device.BreakerEnabled),
	)

	var metrics *monitoring.Metrics
	if cfg.Metrics.Enabled {
		metrics = monitoring.NewMetrics()
		logger.Info("Performance monitoring initialized")
	}

	tracer := tracing.New("relay", logger.Logger)

	r := relay.New(relay.Config{
		Timeout:   cfg.Device.Timeout.Std(),
		UserAgent: cfg.Device.UserAgent,
	}).WithLogger(logger).WithMetrics(metrics).WithTracer(tracer)
	if o.transport != nil {
		r.WithTransport(o.transport)
	}
	if cfg.Device.BreakerEnabled {
		r.WithBreakers(newBreakers(cfg.Device, metrics, logger))
		logger.Info("Device circuit breaker enabled",
			zap.Int("failures", cfg.Device.BreakerFailures),
			zap.Duration("cooldown", cfg.Device.BreakerCooldown.Std()),
			zap.Duration("idle_ttl", cfg.Device.BreakerIdleTTL.Std()),
		)
	}

	router := newRouter(cfg, api.NewHandlers(r, metrics), metrics, tracer, logger)

	var handler http.Handler = router
	if cfg.Server.Compression {
		handler = gzhttp.GzipHandler(router)
	}

	s := &Server{
		handler: handler,
		tracer:  tracer,
		logger:  logger,
		metrics: metrics,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.Info("Server initialized successfully")
	return s, nil
}

func newBreakers(cfg config.DeviceConfig, metrics *monitoring.Metrics, logger *logging.Logger) *resilience.Group {
	group := resilience.NewGroup(resilience.Settings{
		Timeout:     cfg.BreakerCooldown.Std(),
		ReadyToTrip: resilience.ConsecutiveFailures(uint32(cfg.BreakerFailures)),
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Device breaker state changed",
				zap.String("address", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}).WithIdleTTL(cfg.BreakerIdleTTL.Std())

	return group.OnEvict(func(address string) {
		logger.Debug("Forgetting idle device breaker", zap.String("address", address))
		if metrics != nil {
			metrics.SetBreakerOpen(address, false)
		}
	})
}

func newRouter(cfg *config.Config, handlers *api.Handlers, metrics *monitoring.Metrics, tracer *tracing.Tracer, logger *logging.Logger) *gin.Engine {
	if !cfg.Logging.Development && gin.Mode() == gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	if err := router.SetTrustedProxies(nil); err != nil {
		logger.Warn("Failed to clear trusted proxies", zap.Error(err))
	}
	router.RedirectTrailingSlash = false
	router.HandleMethodNotAllowed = true

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	if metrics != nil {
		router.Use(monitoring.Middleware(metrics))
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.CORS.AllowOrigins
	router.Use(middleware.CORS(corsCfg))

	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Device relay
	device := router.Group("/api/relay/:address")
	device.POST("/keypress/*key", handlers.Keypress)
	device.POST("/launch/*appId", handlers.Launch)
	device.GET("/query/*queryPath", handlers.Query)
	device.GET("/device", handlers.DeviceSummary)

	if metrics != nil {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
		router.GET("/metrics/json", handlers.MetricsJSON)
	}

	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})
	router.NoRoute(notFound(cfg.Server.StaticDir, logger))

	return router
}

// notFound serves the static UI for unmatched GET requests when dir is set.
// Unknown files fall back to index.html; unknown API paths stay 404.
func notFound(dir string, logger *logging.Logger) gin.HandlerFunc {
	if dir == "" {
		return func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		}
	}

	logger.Info("Serving static UI", zap.String("dir", dir))
	files := http.FileServer(gin.Dir(dir, false))

	return func(c *gin.Context) {
		method := c.Request.Method
		if strings.HasPrefix(c.Request.URL.Path, "/api/") || (method != http.MethodGet && method != http.MethodHead) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}

		name := path.Clean("/" + c.Request.URL.Path)
		if info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name))); err != nil || (info.IsDir() && name != "/") {
			c.Request.URL.Path = "/"
		}
		files.ServeHTTP(c.Writer, c.Request)
	}
}

// Handler returns the root handler, including compression when enabled.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Metrics returns the server's metrics, or nil when disabled.
func (s *Server) Metrics() *monitoring.Metrics {
	return s.metrics
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Serve accepts connections on l until the server is shut down.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", l.Addr().String()))
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight forwards.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		s.logger.Error("Graceful shutdown incomplete", zap.Error(err))
	}

	s.tracer.Close()
	_ = s.logger.Sync()

	return err
}
