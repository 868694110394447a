package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/RemoteRelay/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/RemoteRelay/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/RemoteRelay/backend/internal/infrastructure/monitoring"
)

type deviceStub func(*http.Request) (*http.Response, error)

func (f deviceStub) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func okDevice(body string) deviceStub {
	return func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"text/xml"}},
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    req,
		}, nil
	}
}

func newTestServer(t *testing.T, cfg *config.Config, device http.RoundTripper) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	srv, err := NewServer(cfg, WithLogger(logging.NewNop()), WithDeviceTransport(device))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func do(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestServerForwardsKeypress(t *testing.T) {
	var got string
	device := deviceStub(func(req *http.Request) (*http.Response, error) {
		got = req.Method + " " + req.URL.String()
		return okDevice("")(req)
	})
	srv := newTestServer(t, config.Default(), device)

	w := do(srv.Handler(), httptest.NewRequest(http.MethodPost, "/api/relay/192.168.1.20/keypress/Home", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.Equal(t, "POST http://192.168.1.20:8060/keypress/Home", got)
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestServerWrongMethod(t *testing.T) {
	srv := newTestServer(t, config.Default(), okDevice(""))

	w := do(srv.Handler(), httptest.NewRequest(http.MethodGet, "/api/relay/10.0.0.5/launch/12", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestServerTrailingSlashIsNotRedirected(t *testing.T) {
	srv := newTestServer(t, config.Default(), okDevice(""))

	w := do(srv.Handler(), httptest.NewRequest(http.MethodPost, "/api/relay/10.0.0.5/keypress/", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServerMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, config.Default(), okDevice(""))
	h := srv.Handler()

	do(h, httptest.NewRequest(http.MethodPost, "/api/relay/10.0.0.5/keypress/Home", nil))

	w := do(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "relay_device_calls_total")
	assert.Contains(t, w.Body.String(), `route="/api/relay/:address/keypress/*key"`)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")

	w = do(h, httptest.NewRequest(http.MethodGet, "/metrics/json", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestServerMetricsDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Metrics.Enabled = false
	srv := newTestServer(t, cfg, okDevice(""))

	assert.Nil(t, srv.Metrics())
	w := do(srv.Handler(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerCompressesLargeResponses(t *testing.T) {
	body := "<apps>" + strings.Repeat(`<app id="12">Netflix</app>`, 200) + "</apps>"
	srv := newTestServer(t, config.Default(), okDevice(body))

	req := httptest.NewRequest(http.MethodGet, "/api/relay/10.0.0.5/query/apps", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := do(srv.Handler(), req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	assert.Less(t, w.Body.Len(), len(body))
}

func TestServerCompressionDisabled(t *testing.T) {
	body := strings.Repeat("x", 4096)
	cfg := config.Default()
	cfg.Server.Compression = false
	srv := newTestServer(t, cfg, okDevice(body))

	req := httptest.NewRequest(http.MethodGet, "/api/relay/10.0.0.5/query/apps", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := do(srv.Handler(), req)

	assert.Empty(t, w.Header().Get("Content-Encoding"))
	assert.Equal(t, body, w.Body.String())
}

func TestServerCORSPreflight(t *testing.T) {
	srv := newTestServer(t, config.Default(), okDevice(""))

	req := httptest.NewRequest(http.MethodOptions, "/api/relay/10.0.0.5/keypress/Home", nil)
	req.Header.Set("Origin", "http://remote.local")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := do(srv.Handler(), req)

	assert.Less(t, w.Code, 300)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestServerRateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1
	srv := newTestServer(t, cfg, okDevice(""))
	h := srv.Handler()

	first := do(h, httptest.NewRequest(http.MethodPost, "/api/relay/10.0.0.5/keypress/Home", nil))
	second := do(h, httptest.NewRequest(http.MethodPost, "/api/relay/10.0.0.5/keypress/Home", nil))

	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestServerRateLimitIgnoresForwardedFor(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit.Enabled = true
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1
	srv := newTestServer(t, cfg, okDevice(""))
	h := srv.Handler()

	for i, forwarded := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		req := httptest.NewRequest(http.MethodPost, "/api/relay/10.0.0.5/keypress/Home", nil)
		req.Header.Set("X-Forwarded-For", forwarded)
		req.Header.Set("X-Real-IP", forwarded)
		w := do(h, req)
		if i == 0 {
			assert.Equal(t, http.StatusOK, w.Code)
		} else {
			assert.Equal(t, http.StatusTooManyRequests, w.Code, forwarded)
		}
	}
}

func TestServerStaticUI(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>remote</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	cfg := config.Default()
	cfg.Server.StaticDir = dir
	srv := newTestServer(t, cfg, okDevice(""))
	h := srv.Handler()

	w := do(h, httptest.NewRequest(http.MethodGet, "/app.js", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", w.Body.String())

	w = do(h, httptest.NewRequest(http.MethodGet, "/remote/settings", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "remote")

	w = do(h, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "not found", body["error"])
}

func TestServerWithoutStaticDir(t *testing.T) {
	srv := newTestServer(t, config.Default(), okDevice(""))

	w := do(srv.Handler(), httptest.NewRequest(http.MethodGet, "/index.html", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServerBreaker(t *testing.T) {
	calls := 0
	device := deviceStub(func(*http.Request) (*http.Response, error) {
		calls++
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: io.ErrUnexpectedEOF}
	})
	cfg := config.Default()
	cfg.Device.BreakerEnabled = true
	cfg.Device.BreakerFailures = 2
	srv := newTestServer(t, cfg, device)
	h := srv.Handler()

	for i := 0; i < 3; i++ {
		w := do(h, httptest.NewRequest(http.MethodPost, "/api/relay/10.0.0.5/keypress/Home", nil))
		assert.Equal(t, http.StatusBadGateway, w.Code)
	}
	assert.Equal(t, 2, calls)

	w := do(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Contains(t, w.Body.String(), `"10.0.0.5":"open"`)
}

func TestIdleBreakersAreForgotten(t *testing.T) {
	metrics := monitoring.NewMetrics()
	cfg := config.Default().Device
	cfg.BreakerFailures = 1
	cfg.BreakerIdleTTL = config.Duration(time.Millisecond)
	breakers := newBreakers(cfg, metrics, logging.NewNop())

	done, err := breakers.Get("10.0.0.5").Allow()
	require.NoError(t, err)
	done(false)
	metrics.SetBreakerOpen("10.0.0.5", true)
	require.Equal(t, 1, testutil.CollectAndCount(metrics.BreakerState))

	time.Sleep(5 * time.Millisecond)
	breakers.Get("10.0.0.6")

	assert.Equal(t, 1, breakers.Len())
	assert.Equal(t, 0, testutil.CollectAndCount(metrics.BreakerState))
}

func TestNewServerRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Device.Timeout = 0

	_, err := NewServer(cfg, WithLogger(logging.NewNop()))
	assert.Error(t, err)
}

func TestServeAndShutdown(t *testing.T) {
	srv := newTestServer(t, config.Default(), okDevice(""))

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- srv.Serve(l) }()

	resp, err := http.Post("http://"+l.Addr().String()+"/api/relay/10.0.0.5/keypress/Home", "text/plain", bytes.NewReader(nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "OK", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Shutdown")
	}
}
