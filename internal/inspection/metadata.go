package inspection

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/inspection-cli/internal/model"
)

// labelFold threads the current label across the metadata rows. A row with
// an empty label cell files its value under the last non-empty label seen.
type labelFold struct {
	current string
	meta    *model.Metadata
}

func (f labelFold) step(label, value string) labelFold {
	if label != "" {
		f.current = label
	}
	f.meta.Append(f.current, value)
	return f
}

// metadataRows returns the direct rows of the listing's first table body
// that have exactly two direct cells.
func metadataRows(listing *goquery.Selection) *goquery.Selection {
	body := listing.Find("tbody").First()
	return body.ChildrenFiltered("tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
		return row.ChildrenFiltered("td").Length() == 2
	})
}

// ExtractMetadata reads the label/value table of a listing block. Values
// preceding the first labelled row are filed under "". A listing without a
// table body yields empty metadata.
func ExtractMetadata(listing *goquery.Selection) *model.Metadata {
	fold := labelFold{meta: model.NewMetadata()}
	if listing == nil {
		return fold.meta
	}
	metadataRows(listing).Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("td")
		fold = fold.step(CleanText(cells.Eq(0)), CleanText(cells.Eq(1)))
	})
	return fold.meta
}
