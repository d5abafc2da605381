// Package geoenrich turns extracted inspection records into geocoded
// features and packages them as a GeoJSON FeatureCollection.
package geoenrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/inspection-cli/internal/model"
	"github.com/sells-group/inspection-cli/internal/resilience"
	"github.com/sells-group/inspection-cli/pkg/geocode"
)

// ErrExternalService marks a geocoder failure or timeout for one record.
var ErrExternalService = eris.New("geoenrich: external service failure")

// Geocoder resolves a one-line address. It is satisfied by geocode.Client.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (*geocode.Result, error)
}

// Defaults for an Enricher.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultConcurrency = 4
)

// Enricher geocodes records one at a time or in bounded batches.
type Enricher struct {
	geocoder    Geocoder
	timeout     time.Duration
	concurrency int
	breaker     *resilience.CircuitBreaker
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithTimeout bounds each geocoder call.
func WithTimeout(d time.Duration) Option {
	return func(e *Enricher) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithConcurrency sets how many records EnrichAll geocodes at once.
func WithConcurrency(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithCircuitBreaker stops calling the geocoder after repeated failures
// until the breaker's reset timeout elapses.
func WithCircuitBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(e *Enricher) {
		e.breaker = resilience.NewCircuitBreaker(cfg)
	}
}

// New creates an Enricher backed by g.
func New(g Geocoder, opts ...Option) *Enricher {
	e := &Enricher{
		geocoder:    g,
		timeout:     DefaultTimeout,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich geocodes the record's address. A record without an address yields
// (nil, nil). An address the geocoder cannot match yields a feature with no
// location.
func (e *Enricher) Enrich(ctx context.Context, r model.Record) (*model.Feature, error) {
	address := r.Address()
	if address == "" {
		return nil, nil
	}

	res, err := e.geocode(ctx, address)
	if err != nil {
		return nil, eris.Wrapf(ErrExternalService, "geocode %q: %v", address, err)
	}

	f := &model.Feature{Properties: Properties(r)}
	if res == nil || !res.Matched {
		return f, nil
	}

	f.Location = &model.Location{Latitude: res.Latitude, Longitude: res.Longitude}
	if res.MatchedAddress != "" {
		f.Properties[model.KeyAddress] = res.MatchedAddress
	}
	return f, nil
}

func (e *Enricher) geocode(ctx context.Context, address string) (*geocode.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	call := func(ctx context.Context) (*geocode.Result, error) {
		res, err := e.geocoder.Geocode(ctx, address)
		if err == nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return res, err
	}
	if e.breaker != nil {
		return resilience.ExecuteVal(ctx, e.breaker, call)
	}
	return call(ctx)
}

// Properties copies the allow-listed record fields into a property map.
// Multi-value labels are joined by single spaces and labels the record
// does not carry are left out.
func Properties(r model.Record) map[string]any {
	props := make(map[string]any, len(model.FeatureKeys))
	for _, k := range model.FeatureKeys {
		v, ok := r.Value(k)
		if !ok {
			continue
		}
		if vals, isText := v.([]string); isText {
			props[k] = model.JoinValues(vals)
			continue
		}
		props[k] = v
	}
	return props
}

// Outcome is the result of enriching one record.
type Outcome struct {
	Index   int
	Feature *model.Feature
	Skipped bool
	Err     error
}

// EnrichAll geocodes records with a bounded worker pool. It returns one
// Outcome per record in input order. A failed record never stops the
// batch.
func (e *Enricher) EnrichAll(ctx context.Context, records []model.Record) []Outcome {
	outcomes := make([]Outcome, len(records))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, r := range records {
		g.Go(func() error {
			out := Outcome{Index: i}
			if err := ctx.Err(); err != nil {
				out.Err = eris.Wrap(err, "geoenrich: enrich")
				outcomes[i] = out
				return nil
			}
			f, err := e.Enrich(ctx, r)
			switch {
			case err != nil:
				out.Err = err
				zap.L().Warn("geoenrich: record failed",
					zap.Int("index", i),
					zap.String("business", r.BusinessName()),
					zap.Error(err),
				)
			case f == nil:
				out.Skipped = true
			default:
				out.Feature = f
			}
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()

	stats := Summarize(outcomes)
	zap.L().Info("geoenrich: batch complete",
		zap.Int("records", len(records)),
		zap.Int("located", stats.Located),
		zap.Int("unmatched", stats.Unmatched),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)
	return outcomes
}

// Stats counts outcomes by kind.
type Stats struct {
	Located   int `json:"located"`
	Unmatched int `json:"unmatched"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// Summarize counts outcomes by kind.
func Summarize(outcomes []Outcome) Stats {
	var s Stats
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			s.Failed++
		case o.Skipped:
			s.Skipped++
		case o.Feature.Location == nil:
			s.Unmatched++
		default:
			s.Located++
		}
	}
	return s
}

// Features returns the features of successful outcomes in order.
func Features(outcomes []Outcome) []*model.Feature {
	out := make([]*model.Feature, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Feature != nil {
			out = append(out, o.Feature)
		}
	}
	return out
}
