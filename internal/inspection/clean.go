package inspection

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// cleanCutset is stripped from both ends of every cell. The non-breaking
// space covers the "&nbsp;" the results page uses for blank label cells.
const cleanCutset = " \t\r\n\u00a0:-"

// CleanText returns the trimmed single string of a table cell. A cell has a
// single string when it holds exactly one text node, directly or through a
// chain of single-child elements; any other cell yields "".
func CleanText(cell *goquery.Selection) string {
	if cell == nil || cell.Length() == 0 {
		return ""
	}
	s, ok := singleString(cell.Get(0))
	if !ok {
		return ""
	}
	return CleanString(s)
}

// CleanString trims whitespace, colons and hyphens from both ends of s.
func CleanString(s string) string {
	return strings.Trim(s, cleanCutset)
}

func singleString(n *html.Node) (string, bool) {
	if n.Type == html.TextNode {
		return n.Data, true
	}
	c := n.FirstChild
	if c == nil || c.NextSibling != nil {
		return "", false
	}
	return singleString(c)
}
