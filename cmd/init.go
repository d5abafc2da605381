package main

import (
	"context"
	"time"

	"github.com/sells-group/inspection-cli/internal/fetcher"
	"github.com/sells-group/inspection-cli/internal/geoenrich"
	"github.com/sells-group/inspection-cli/internal/resilience"
	"github.com/sells-group/inspection-cli/internal/store"
	"github.com/sells-group/inspection-cli/pkg/geocode"
)

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
}

func initFetcher(render bool) fetcher.Fetcher {
	timeout := time.Duration(cfg.Source.TimeoutSecs) * time.Second
	if render || cfg.Source.Render {
		return fetcher.NewBrowserFetcher(fetcher.BrowserOptions{
			ExecPath:  cfg.Source.ChromeBin,
			UserAgent: cfg.Source.UserAgent,
			Timeout:   timeout,
		})
	}
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  cfg.Source.UserAgent,
		Timeout:    timeout,
		MaxRetries: cfg.Source.Retries,
	})
}

func initEnricher() *geoenrich.Enricher {
	opts := []geocode.Option{
		geocode.WithRateLimit(cfg.Geo.RateLimit),
		geocode.WithRetry(resilience.FromRetryConfig(cfg.Geo.RetryAttempts, 0, 0)),
	}
	if cfg.Geo.GoogleAPIKey != "" {
		opts = append(opts, geocode.WithGoogleAPIKey(cfg.Geo.GoogleAPIKey))
	}

	return geoenrich.New(geocode.NewClient(opts...),
		geoenrich.WithTimeout(time.Duration(cfg.Geo.TimeoutSecs)*time.Second),
		geoenrich.WithConcurrency(cfg.Geo.Concurrency),
		geoenrich.WithCircuitBreaker(resilience.FromCircuitConfig(cfg.Geo.BreakerThreshold, cfg.Geo.BreakerResetSecs)),
	)
}
