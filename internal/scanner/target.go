package scanner

import (
	"regexp"
	"strconv"
	"strings"
)

// Placeholder is substituted with the candidate number in URL templates.
const Placeholder = "{n}"

// Target maps a candidate number to its domain name and search URL.
type Target struct {
	URLTemplate string
	SiteRoot    string
	TLD         string
}

// URL builds the search URL for n.
func (t Target) URL(n int) string {
	return strings.ReplaceAll(t.URLTemplate, Placeholder, strconv.Itoa(n))
}

// Domain returns the queried domain name for n, e.g. "112509.xyz".
func (t Target) Domain(n int) string {
	return strconv.Itoa(n) + "." + t.TLD
}

// URLPattern compiles a regexp that matches URLs built from the template
// and captures the candidate number.
func (t Target) URLPattern() (*regexp.Regexp, error) {
	parts := strings.Split(t.URLTemplate, Placeholder)
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile(strings.Join(quoted, `(\d+)`))
}
