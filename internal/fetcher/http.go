package fetcher

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/inspection-cli/internal/resilience"
)

// maxPageBytes bounds the size of a results page read into memory.
const maxPageBytes = 64 << 20

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	Retry      *resilience.RetryConfig
	Client     *http.Client
}

// HTTPFetcher implements Fetcher using net/http with retry on transient
// failures.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions
	retry  resilience.RetryConfig
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "inspection-cli/1.0"
	}

	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = opts.MaxRetries
	if opts.Retry != nil {
		retry = *opts.Retry
	}

	return &HTTPFetcher{client: client, opts: opts, retry: retry}
}

// Fetch runs the query and returns the response body.
func (f *HTTPFetcher) Fetch(ctx context.Context, q *Query) ([]byte, error) {
	rawURL, err := q.URL()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := f.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	zap.L().Info("fetcher: fetched results page",
		zap.String("url", rawURL),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return body, nil
}

// Get fetches rawURL, retrying on transient errors, 429 and 5xx responses.
// Any other non-2xx status or a detected block page fails immediately.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string) ([]byte, error) {
	cfg := f.retry
	cfg.OnRetry = resilience.RetryLogger("fetcher", "get")

	body, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		return f.get(ctx, rawURL)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
	}
	return body, nil
}

func (f *HTTPFetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, eris.Wrap(err, "read body")
	}

	if blocked, kind := DetectBlock(resp, body); blocked {
		return nil, blockedError(kind, rawURL)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := eris.Errorf("http %d from %s", resp.StatusCode, rawURL)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	}
	return body, nil
}
