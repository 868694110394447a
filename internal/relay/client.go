package relay

import (
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
)

// DefaultTimeout bounds a single device call.
const DefaultTimeout = 4 * time.Second

// DefaultUserAgent identifies the relay to devices.
const DefaultUserAgent = "RemoteRelay/1.0"

// newClient builds the outbound client. Resty runs with retries off and
// redirects returned as-is, so each forward is exactly one device request.
func newClient(transport http.RoundTripper, userAgent string, logger resty.Logger) *resty.Client {
	if transport == nil {
		// Pooled keep-alive transport; retry logic stays unused.
		pooled := retryablehttp.NewClient()
		pooled.Logger = nil
		transport = pooled.HTTPClient.Transport
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return resty.New().
		SetTransport(transport).
		SetRetryCount(0).
		SetCookieJar(nil).
		SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		})).
		SetHeader("User-Agent", userAgent).
		SetLogger(logger)
}
