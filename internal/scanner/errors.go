package scanner

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError reports a response whose status is outside the 2xx range.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	if e.Blocked() {
		return fmt.Sprintf("HTTP %d (blocked)", e.Code)
	}
	return fmt.Sprintf("HTTP %d", e.Code)
}

// Blocked reports whether the status signals rate limiting or an anti-bot block.
func (e *StatusError) Blocked() bool {
	return e.Code == http.StatusForbidden || e.Code == http.StatusTooManyRequests
}

// IsBlocked classifies err as a blocked-type failure.
func IsBlocked(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Blocked()
	}
	return false
}
