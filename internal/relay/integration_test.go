//go:build integration
// +build integration

package relay

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dialTo returns a transport that sends every connection to addr, so a
// local test server can play the device on port 8060.
func dialTo(addr string) *http.Transport {
	dialer := &net.Dialer{Timeout: time.Second}
	return &http.Transport{
		DialContext: func(ctx context.Context, network, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, addr)
		},
	}
}

func TestRelayAgainstLiveDevice(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	device := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.EscapedPath() == "/keypress/Lit_%3F":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodGet && r.URL.Path == "/query/apps":
			w.Header().Set("Content-Type", "text/xml; charset=\"utf-8\"")
			io.WriteString(w, `<apps><app id="12">Netflix</app></apps>`)
		case r.Method == http.MethodGet && r.URL.Path == "/query/slow":
			time.Sleep(300 * time.Millisecond)
		default:
			http.Error(w, "unknown command", http.StatusNotFound)
		}
	}))
	defer device.Close()

	r := New(Config{Timeout: 100 * time.Millisecond}).WithTransport(dialTo(device.Listener.Addr().String()))
	ctx := context.Background()

	t.Run("keypress", func(t *testing.T) {
		o, err := r.Keypress(ctx, "10.0.0.5", "Lit_?")
		require.NoError(t, err)
		assert.Equal(t, KindSuccess, o.Kind)
		assert.Equal(t, "OK", string(o.Response.Body))
	})

	t.Run("query", func(t *testing.T) {
		o, err := r.Query(ctx, "10.0.0.5", "apps")
		require.NoError(t, err)
		assert.Equal(t, KindSuccess, o.Kind)
		assert.Contains(t, string(o.Response.Body), "Netflix")
		assert.Equal(t, "text/xml; charset=\"utf-8\"", o.Response.ContentType)
	})

	t.Run("unknown command", func(t *testing.T) {
		o, err := r.Launch(ctx, "10.0.0.5", "missing")
		require.NoError(t, err)
		assert.Equal(t, KindRejected, o.Kind)
		assert.Equal(t, http.StatusNotFound, o.Response.StatusCode)
	})

	t.Run("timeout", func(t *testing.T) {
		o, err := r.Query(ctx, "10.0.0.5", "slow")
		require.NoError(t, err)
		assert.Equal(t, KindUnreachable, o.Kind)
		assert.ErrorIs(t, o.Err, ErrUnreachable)
	})
}

func TestRelayConnectionRefused(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	r := New(Config{Timeout: time.Second}).WithTransport(dialTo(addr))

	o, err := r.Keypress(context.Background(), "10.0.0.5", "Home")
	require.NoError(t, err)
	assert.Equal(t, KindUnreachable, o.Kind)
	assert.ErrorIs(t, o.Err, ErrUnreachable)
	assert.Contains(t, o.Err.Error(), "refused")
}
