// Package inspection extracts restaurant inspection records from the
// inspection results page markup.
package inspection

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultEncoding is used when no encoding is declared.
const DefaultEncoding = "utf-8"

// ParseDocument decodes content from the declared encoding and parses it
// into a traversable tree. Parsing is lenient: unknown tags become generic
// elements and unclosed tags are closed at the nearest valid scope. Only
// empty content or an unknown encoding fail, both with ErrMalformedInput.
func ParseDocument(content []byte, encoding string) (*goquery.Document, error) {
	if len(content) == 0 {
		return nil, eris.Wrap(ErrMalformedInput, "empty document")
	}

	name := strings.TrimSpace(encoding)
	if name == "" {
		name = DefaultEncoding
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, eris.Wrapf(ErrMalformedInput, "unsupported encoding %q", encoding)
	}

	decoded, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return nil, eris.Wrapf(ErrMalformedInput, "decode %s: %v", name, err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(decoded))
	if err != nil {
		return nil, eris.Wrapf(ErrMalformedInput, "parse html: %v", err)
	}
	return doc, nil
}

// ParseDocumentString is ParseDocument for string content.
func ParseDocumentString(content, encoding string) (*goquery.Document, error) {
	return ParseDocument([]byte(content), encoding)
}
