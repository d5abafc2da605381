// Package export writes extracted inspection records in the supported
// output formats.
package export

import (
	"encoding/json"
	"io"
	"slices"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/inspection-cli/internal/model"
)

// Format names an output format.
type Format string

const (
	FormatJSONL    Format = "jsonl"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatXLSX     Format = "xlsx"
	FormatMarkdown Format = "markdown"
)

// Formats lists the supported formats.
var Formats = []Format{FormatJSONL, FormatJSON, FormatYAML, FormatXLSX, FormatMarkdown}

// ParseFormat resolves a format name. "md" and "yml" are accepted aliases.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatJSONL:
		return FormatJSONL, nil
	case "md":
		return FormatMarkdown, nil
	case "yml":
		return FormatYAML, nil
	default:
		if slices.Contains(Formats, f) {
			return f, nil
		}
		return "", eris.Errorf("export: unknown format %q", s)
	}
}

// Writer encodes a batch of records.
type Writer interface {
	Write(w io.Writer, records []model.Record) error
}

// New returns the Writer for format.
func New(format Format) (Writer, error) {
	switch format {
	case FormatJSONL, "":
		return JSONLWriter{}, nil
	case FormatJSON:
		return JSONWriter{Indent: "  "}, nil
	case FormatYAML:
		return YAMLWriter{}, nil
	case FormatXLSX:
		return XLSXWriter{SheetName: DefaultSheetName}, nil
	case FormatMarkdown:
		return MarkdownWriter{}, nil
	default:
		return nil, eris.Errorf("export: unknown format %q", format)
	}
}

// Columns returns the union of record keys in first-seen order, with the
// score keys last.
func Columns(records []model.Record) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, r := range records {
		for _, k := range r.Keys() {
			if seen[k] || slices.Contains(model.ScoreKeys, k) {
				continue
			}
			seen[k] = true
			cols = append(cols, k)
		}
	}
	return append(cols, model.ScoreKeys...)
}

// JSONLWriter prints one record per line.
type JSONLWriter struct{}

func (JSONLWriter) Write(w io.Writer, records []model.Record) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, r := range records {
		if err := enc.Encode(r); err != nil {
			return eris.Wrapf(err, "export: encode record %d", i)
		}
	}
	return nil
}

// JSONWriter writes the records as one JSON array.
type JSONWriter struct {
	Indent string
}

func (jw JSONWriter) Write(w io.Writer, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if jw.Indent != "" {
		enc.SetIndent("", jw.Indent)
	}
	return eris.Wrap(enc.Encode(records), "export: encode records")
}
