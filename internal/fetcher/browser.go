package fetcher

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// BrowserOptions configures the headless browser fetcher.
type BrowserOptions struct {
	ExecPath  string
	UserAgent string
	Timeout   time.Duration
	// WaitSelector is the element that must be ready before the page is
	// captured.
	WaitSelector string
}

// BrowserFetcher renders the results page in headless Chrome and returns
// the serialized DOM.
type BrowserFetcher struct {
	opts BrowserOptions
}

// NewBrowserFetcher creates a BrowserFetcher with the given options.
func NewBrowserFetcher(opts BrowserOptions) *BrowserFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.WaitSelector == "" {
		opts.WaitSelector = "body"
	}
	return &BrowserFetcher{opts: opts}
}

func (b *BrowserFetcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if b.opts.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(b.opts.UserAgent))
	}
	if b.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(b.opts.ExecPath))
	}
	return opts
}

// Fetch navigates to the query URL and captures the rendered document.
func (b *BrowserFetcher) Fetch(ctx context.Context, q *Query) ([]byte, error) {
	rawURL, err := q.URL()
	if err != nil {
		return nil, err
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, b.allocatorOptions()...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...any) {}))
	defer cancelBrowser()

	runCtx, cancel := context.WithTimeout(browserCtx, b.opts.Timeout)
	defer cancel()

	var html string
	err = chromedp.Run(runCtx,
		chromedp.Navigate(rawURL),
		chromedp.WaitReady(b.opts.WaitSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: render %s", rawURL)
	}
	if blocked, kind := DetectBlockBody([]byte(html)); blocked {
		return nil, blockedError(kind, rawURL)
	}

	zap.L().Info("fetcher: rendered results page",
		zap.String("url", rawURL),
		zap.Int("bytes", len(html)),
	)
	return []byte(html), nil
}
