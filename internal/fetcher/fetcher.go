// Package fetcher retrieves inspection results pages from the King County
// food safety site, either over plain HTTP or through a headless browser,
// and loads or persists raw pages on disk.
package fetcher

import "context"

// Fetcher defines the interface for retrieving a results page.
type Fetcher interface {
	// Fetch runs the query against the source site and returns the raw page.
	Fetch(ctx context.Context, q *Query) ([]byte, error)
}
