package inspection

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func historyTable(rows ...string) string {
	return "<table>" + strings.Join(rows, "") + "</table>"
}

func inspectionRow(first, score string) string {
	return fmt.Sprintf("<tr><td>%s</td><td>01/01/2016</td><td>%s</td><td>Satisfactory</td></tr>", first, score)
}

func TestAggregateScores_SkipsUnparseable(t *testing.T) {
	listing := listingFrom(t, historyTable(
		inspectionRow("Routine Inspection/Field Review", "12"),
		inspectionRow("Routine Inspection/Field Review", "abc"),
		inspectionRow("Return Inspection", "0"),
		inspectionRow("Routine Inspection/Field Review", "7"),
	))

	s := AggregateScores(listing)
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, 12, s.High)
	assert.InDelta(t, 19.0/3.0, s.Average, 1e-9)
}

func TestAggregateScores_HeaderRowExcluded(t *testing.T) {
	listing := listingFrom(t, historyTable(
		"<tr><td>Inspection Type</td><td>Inspection Date</td><td>99</td><td>Inspection Result</td></tr>",
		inspectionRow("Return Inspection", "4"),
	))

	s := AggregateScores(listing)
	assert.Equal(t, 1, s.Count)
	assert.Equal(t, 4, s.High)
	assert.InDelta(t, 4.0, s.Average, 1e-9)
}

func TestAggregateScores_NoRows(t *testing.T) {
	listing := listingFrom(t, `<p>nothing</p>`)
	s := AggregateScores(listing)
	assert.Equal(t, 0, s.Count)
	assert.Equal(t, 0, s.High)
	assert.Equal(t, 0.0, s.Average)
}

func TestAggregateScores_AllUnparseable(t *testing.T) {
	listing := listingFrom(t, historyTable(
		inspectionRow("Return Inspection", ""),
		inspectionRow("Return Inspection", "n/a"),
	))

	s := AggregateScores(listing)
	assert.Equal(t, 0, s.Count)
	assert.Equal(t, 0.0, s.Average)
}

func TestAggregateScores_NegativeDoesNotRaiseHigh(t *testing.T) {
	listing := listingFrom(t, historyTable(inspectionRow("Return Inspection", "-5")))

	s := AggregateScores(listing)
	// "-5" is cleaned to "5" since hyphens are trimmed from cell text.
	assert.Equal(t, 5, s.High)

	f := scoreFold{count: 1}.add(-5, true)
	assert.Equal(t, 0, f.summary().High)
	assert.InDelta(t, -5.0, f.summary().Average, 1e-9)
}

func TestIsInspectionRow(t *testing.T) {
	tests := []struct {
		name string
		row  string
		want bool
	}{
		{"data row", inspectionRow("Routine Inspection/Field Review", "1"), true},
		{"count label", inspectionRow("# of Inspections", "1"), true},
		{"header starts with word", inspectionRow("Inspection Type", "1"), false},
		{"lowercase header", inspectionRow("inspection date", "1"), false},
		{"no keyword", inspectionRow("Consultation/Education", "1"), false},
		{"three cells", "<tr><td>Return Inspection</td><td>a</td><td>1</td></tr>", false},
		{"five cells", "<tr><td>Return Inspection</td><td>a</td><td>1</td><td>b</td><td>c</td></tr>", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseHTML(t, "<table>"+tt.row+"</table>")
			assert.Equal(t, tt.want, IsInspectionRow(doc.Find("tr").First()))
		})
	}
}

func TestIsInspectionRow_NotATableRow(t *testing.T) {
	doc := parseHTML(t, `<div>Return Inspection</div>`)
	assert.False(t, IsInspectionRow(doc.Find("div")))
	assert.False(t, IsInspectionRow(nil))
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"12", 12, true},
		{"0", 0, true},
		{" 7 ", 7, true},
		{"+3", 3, true},
		{"abc", 0, false},
		{"", 0, false},
		{"1.5", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseScore(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
