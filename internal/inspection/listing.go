package inspection

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

// ListingMatcher recognizes listing blocks by their id attribute. The
// results page carries no schema; the id prefix is the only stable marker
// of the repeated per-restaurant template.
type ListingMatcher struct {
	pattern *regexp.Regexp
}

// DefaultListingMatcher matches ids such as "PR0012345~" or
// "PR0012345~ABC": "PR", one or more digits, then "~".
var DefaultListingMatcher = MustListingMatcher(`^PR\d+~`)

// NewListingMatcher compiles expr into a ListingMatcher.
func NewListingMatcher(expr string) (ListingMatcher, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return ListingMatcher{}, eris.Wrapf(err, "inspection: compile listing pattern %q", expr)
	}
	return ListingMatcher{pattern: re}, nil
}

// MustListingMatcher is NewListingMatcher that panics on a bad pattern.
func MustListingMatcher(expr string) ListingMatcher {
	m, err := NewListingMatcher(expr)
	if err != nil {
		panic(err)
	}
	return m
}

// Match reports whether id identifies a listing block.
func (m ListingMatcher) Match(id string) bool {
	if m.pattern == nil {
		return false
	}
	return m.pattern.MatchString(id)
}

// String returns the underlying pattern.
func (m ListingMatcher) String() string {
	if m.pattern == nil {
		return ""
	}
	return m.pattern.String()
}

// Locate returns every element under root whose id matches, in document
// order. It never returns nil.
func (m ListingMatcher) Locate(root *goquery.Selection) []*goquery.Selection {
	listings := make([]*goquery.Selection, 0)
	if root == nil {
		return listings
	}
	root.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		if m.Match(id) {
			listings = append(listings, s)
		}
	})
	return listings
}

// LocateListings returns the listing blocks of doc using DefaultListingMatcher.
func LocateListings(doc *goquery.Document) []*goquery.Selection {
	if doc == nil {
		return make([]*goquery.Selection, 0)
	}
	return DefaultListingMatcher.Locate(doc.Selection)
}
