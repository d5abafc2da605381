package inspection

import (
	"context"
	"runtime"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/inspection-cli/internal/model"
)

// Extractor turns a results page into one Record per listing block.
type Extractor struct {
	matcher ListingMatcher
	workers int
	limit   int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWorkers sets how many listing blocks are processed concurrently.
func WithWorkers(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLimit caps the number of listings extracted. Zero means no cap.
func WithLimit(n int) Option {
	return func(e *Extractor) {
		if n >= 0 {
			e.limit = n
		}
	}
}

// WithMatcher replaces the listing block matcher.
func WithMatcher(m ListingMatcher) Option {
	return func(e *Extractor) {
		e.matcher = m
	}
}

// NewExtractor creates an Extractor with the given options.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		matcher: DefaultListingMatcher,
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractListing builds the Record for a single listing block.
func (e *Extractor) ExtractListing(listing *goquery.Selection) model.Record {
	return AssembleRecord(ExtractMetadata(listing), AggregateScores(listing))
}

// Extract locates the listing blocks of doc and extracts them in parallel.
// Records are returned in document order. Only context cancellation fails.
func (e *Extractor) Extract(ctx context.Context, doc *goquery.Document) ([]model.Record, error) {
	if doc == nil {
		return nil, eris.Wrap(ErrMalformedInput, "nil document")
	}

	listings := e.matcher.Locate(doc.Selection)
	total := len(listings)
	if e.limit > 0 && len(listings) > e.limit {
		listings = listings[:e.limit]
	}

	zap.L().Debug("inspection: located listings",
		zap.Int("found", total),
		zap.Int("extracting", len(listings)),
		zap.String("pattern", e.matcher.String()),
	)

	records := make([]model.Record, len(listings))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, listing := range listings {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			records[i] = e.ExtractListing(listing)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "inspection: extract listings")
	}
	return records, nil
}

// Run parses content and extracts its records.
func (e *Extractor) Run(ctx context.Context, content []byte, encoding string) ([]model.Record, error) {
	doc, err := ParseDocument(content, encoding)
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, doc)
}
