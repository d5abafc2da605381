package geocode

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/inspection-cli/internal/resilience"
)

// newTestLimiter creates a rate limiter that effectively does not limit for tests.
func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// newTestRetry retries once with a negligible backoff.
func newTestRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		OnRetry:        func(int, error) {},
	}
}

// newRewriteClient creates an HTTP client that rewrites requests to test server URLs.
// Keys of routes are upstream URL prefixes, values are test server URLs.
func newRewriteClient(routes map[string]string) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:   http.DefaultTransport,
			routes: routes,
		},
	}
}

type rewriteTransport struct {
	base   http.RoundTripper
	routes map[string]string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	origURL := req.URL.String()
	for prefix, testServer := range t.routes {
		if !strings.HasPrefix(origURL, prefix) {
			continue
		}
		suffix := origURL[len(prefix):]
		newReq := req.Clone(req.Context())
		parsed, err := req.URL.Parse(testServer + suffix)
		if err != nil {
			return nil, err
		}
		newReq.URL = parsed
		newReq.Host = parsed.Host
		return t.base.RoundTrip(newReq)
	}
	return t.base.RoundTrip(req)
}
