package export

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/rotisserie/eris"

	"github.com/sells-group/inspection-cli/internal/model"
)

// MarkdownWriter writes a summary and one table row per record.
type MarkdownWriter struct {
	Title string
}

var markdownColumns = []string{
	model.KeyBusinessName,
	model.KeyAddress,
	model.KeyAverageScore,
	model.KeyHighScore,
	model.KeyTotalInspections,
}

func (mw MarkdownWriter) Write(w io.Writer, records []model.Record) error {
	title := mw.Title
	if title == "" {
		title = "Restaurant Inspections"
	}

	md := markdown.NewMarkdown(w)
	md.H1(title)
	md.PlainText("")

	if len(records) == 0 {
		md.Note("No listings found.")
		return eris.Wrap(md.Build(), "export: write markdown")
	}

	md.H2("Summary")
	md.PlainText("")
	md.Table(summaryTable(records))
	md.PlainText("")

	md.H2("Listings")
	md.PlainText("")
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		row := make([]string, len(markdownColumns))
		for i, c := range markdownColumns {
			row[i] = r.Text(c)
		}
		rows = append(rows, row)
	}
	md.Table(markdown.TableSet{Header: markdownColumns, Rows: rows})

	return eris.Wrap(md.Build(), "export: write markdown")
}

func summaryTable(records []model.Record) markdown.TableSet {
	var inspected, inspections, high int
	for _, r := range records {
		if r.Summary.Count > 0 {
			inspected++
		}
		inspections += r.Summary.Count
		high = max(high, r.Summary.High)
	}
	return markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Listings", strconv.Itoa(len(records))},
			{"Listings with scored inspections", strconv.Itoa(inspected)},
			{"Scored inspections", strconv.Itoa(inspections)},
			{"Highest score", strconv.Itoa(high)},
		},
	}
}
