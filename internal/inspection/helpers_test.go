package inspection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func parseHTML(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	doc, err := ParseDocumentString(markup, "utf-8")
	require.NoError(t, err)
	return doc
}

// listingFrom wraps body in a listing block and returns that block.
func listingFrom(t *testing.T, body string) *goquery.Selection {
	t.Helper()
	doc := parseHTML(t, `<html><body><div id="PR1~">`+body+`</div></body></html>`)
	listings := LocateListings(doc)
	require.Len(t, listings, 1)
	return listings[0]
}

func loadFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", "results.html"))
	require.NoError(t, err)
	return data
}
