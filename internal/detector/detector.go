// Package detector decides whether a fetched page reports a candidate as available.
package detector

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultSnippet is the marker the registrar page renders for a free domain.
const DefaultSnippet = "is available"

// PriceSelector matches the elements the search page uses for pricing.
const PriceSelector = `[class*="price"]`

// Marker is an exact, case-sensitive substring test.
type Marker struct {
	Snippet string
}

// NewMarker builds a Marker, falling back to DefaultSnippet when snippet is empty.
func NewMarker(snippet string) Marker {
	if snippet == "" {
		snippet = DefaultSnippet
	}
	return Marker{Snippet: snippet}
}

// Match reports whether body contains the snippet verbatim.
func (m Marker) Match(body []byte) bool {
	if m.Snippet == "" {
		return false
	}
	return bytes.Contains(body, []byte(m.Snippet))
}

// ExtractPrice returns the text of the first non-empty price element, if any.
// Parse failures yield an empty string.
func ExtractPrice(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	var price string
	doc.Find(PriceSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return true
		}
		price = text
		return false
	})
	return price
}
