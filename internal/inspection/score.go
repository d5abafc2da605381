package inspection

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sells-group/inspection-cli/internal/model"
)

const inspectionWord = "inspection"

// IsInspectionRow reports whether s is a <tr> with exactly four direct
// cells whose first cell mentions "inspection" without starting with it.
// The column header row ("Inspection Type", ...) starts with the word and
// is excluded.
func IsInspectionRow(s *goquery.Selection) bool {
	if s == nil || goquery.NodeName(s) != "tr" {
		return false
	}
	cells := s.ChildrenFiltered("td")
	if cells.Length() != 4 {
		return false
	}
	text := strings.ToLower(CleanText(cells.First()))
	return strings.Contains(text, inspectionWord) && !strings.HasPrefix(text, inspectionWord)
}

// ParseScore parses a cleaned score cell. ok is false for empty or
// non-numeric text.
func ParseScore(text string) (score int, ok bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, false
	}
	return n, true
}

// scoreFold accumulates count, total and high score over candidate rows.
// count starts at the number of candidates and drops for each row whose
// score does not parse.
type scoreFold struct {
	count int
	total int
	high  int
}

func (f scoreFold) add(score int, ok bool) scoreFold {
	if !ok {
		f.count--
		return f
	}
	f.total += score
	if score > f.high {
		f.high = score
	}
	return f
}

func (f scoreFold) summary() model.ScoreSummary {
	var avg float64
	if f.count > 0 {
		avg = float64(f.total) / float64(f.count)
	}
	return model.ScoreSummary{Average: avg, High: f.high, Count: f.count}
}

// InspectionRows returns the candidate inspection rows of a listing.
func InspectionRows(listing *goquery.Selection) *goquery.Selection {
	return listing.Find("tr").FilterFunction(func(_ int, row *goquery.Selection) bool {
		return IsInspectionRow(row)
	})
}

// AggregateScores computes the score summary of a listing block. Rows with
// unparseable scores are dropped from both the total and the count.
func AggregateScores(listing *goquery.Selection) model.ScoreSummary {
	if listing == nil {
		return model.ScoreSummary{}
	}
	rows := InspectionRows(listing)
	fold := scoreFold{count: rows.Length()}
	rows.Each(func(_ int, row *goquery.Selection) {
		fold = fold.add(ParseScore(CleanText(row.ChildrenFiltered("td").Eq(2))))
	})
	return fold.summary()
}
