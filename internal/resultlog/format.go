// Package resultlog persists scan outcomes to the append-only hit log and the
// per-run error log.
package resultlog

import (
	"fmt"
	"strings"
	"time"
)

// ErrorTimeLayout renders timestamps as ISO-8601 UTC with millisecond precision.
const ErrorTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatHitLine renders the record line for an available domain.
func FormatHitLine(domain, url string) string {
	return fmt.Sprintf("## [%s](%s)\n", domain, url)
}

// FormatOKLine renders the record line for a page saved without the marker.
func FormatOKLine(url string) string {
	return url + "\n"
}

// FormatErrorLine renders one error log entry. Newlines in msg are flattened
// so each failure stays on one line.
func FormatErrorLine(at time.Time, url, msg string) string {
	msg = strings.Join(strings.Fields(msg), " ")
	return fmt.Sprintf("[%s] %s -> %s\n", at.UTC().Format(ErrorTimeLayout), url, msg)
}
