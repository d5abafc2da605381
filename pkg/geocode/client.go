// Package geocode provides address geocoding via Census Geocoder (primary) and Google (fallback).
package geocode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/inspection-cli/internal/resilience"
)

// Client geocodes free-text addresses.
type Client interface {
	// Geocode geocodes a single one-line address. An address no provider
	// matches is not an error: the result has Matched=false.
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude       float64
	Longitude      float64
	MatchedAddress string // provider-normalized address, may be empty
	Source         string // "census" or "google"
	Quality        string // "rooftop", "range", "centroid", "approximate"
	Matched        bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithGoogleAPIKey enables Google Geocoding API as a fallback.
func WithGoogleAPIKey(key string) Option {
	return func(g *geocoder) {
		g.googleKey = key
	}
}

// WithHTTPClient sets a custom HTTP client for both Census and Google requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second rate limit shared by all providers.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		if rps <= 0 {
			return
		}
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithRetry sets the retry policy applied to each provider request.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(g *geocoder) {
		g.retry = cfg
	}
}

type geocoder struct {
	httpClient *http.Client
	googleKey  string
	limiter    *rate.Limiter
	retry      resilience.RetryConfig
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
		retry:      resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode geocodes an address, trying Census first, then Google if configured.
// A provider error is returned only when no provider produced an answer.
func (g *geocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return &Result{Matched: false}, nil
	}

	result, censusErr := resilience.DoVal(ctx, g.retryConfig("geocode_census"), func(ctx context.Context) (*Result, error) {
		return g.geocodeCensus(ctx, address)
	})
	if censusErr == nil && result.Matched {
		return result, nil
	}
	if censusErr != nil {
		zap.L().Debug("geocode: census failed",
			zap.String("address", address),
			zap.Error(censusErr),
		)
	}

	if g.googleKey == "" {
		if censusErr != nil {
			return nil, censusErr
		}
		return result, nil
	}

	googleResult, googleErr := resilience.DoVal(ctx, g.retryConfig("geocode_google"), func(ctx context.Context) (*Result, error) {
		return g.geocodeGoogle(ctx, address)
	})
	if googleErr == nil {
		return googleResult, nil
	}
	if censusErr == nil {
		// Census answered (unmatched); a Google outage does not turn that into a failure.
		return result, nil
	}
	return nil, eris.Wrapf(googleErr, "geocode: all providers failed (census: %v)", censusErr)
}

func (g *geocoder) retryConfig(operation string) resilience.RetryConfig {
	cfg := g.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("geocode", operation)
	}
	return cfg
}

// statusError classifies a non-200 provider response.
func statusError(provider string, status int) error {
	err := eris.Errorf("geocode: %s returned status %d", provider, status)
	if resilience.IsTransientHTTPStatus(status) {
		return resilience.NewTransientError(err, status)
	}
	return err
}
