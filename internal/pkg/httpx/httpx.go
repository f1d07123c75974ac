// Package httpx centralizes retry classification and backoff shaping for the
// service's outbound HTTP clients.
package httpx

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPStatusCoder is implemented by client error types that carry the
// upstream status code, so classification works across packages without
// concrete type assertions.
type HTTPStatusCoder interface {
	HTTPStatusCode() int
}

// IsRetryableHTTPStatus treats request timeouts, rate limits and every 5xx
// as transient.
func IsRetryableHTTPStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= 500 && code <= 599:
		return true
	default:
		return false
	}
}

// IsRetryableError reports whether a failed call is worth repeating:
// context expiry, network timeouts, and upstream errors whose status code
// classifies as transient.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && (netErr.Timeout() || netErr.Temporary()) {
		return true
	}
	var coder HTTPStatusCoder
	if errors.As(err, &coder) {
		return IsRetryableHTTPStatus(coder.HTTPStatusCode())
	}
	return false
}

// RetryAfterDuration honors an integer Retry-After header when present,
// otherwise returns fallback. The result never exceeds max when max is set.
func RetryAfterDuration(resp *http.Response, fallback, max time.Duration) time.Duration {
	wait := fallback
	if resp != nil {
		header := strings.TrimSpace(resp.Header.Get("Retry-After"))
		if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
			wait = time.Duration(secs) * time.Second
		}
	}
	if max > 0 && wait > max {
		wait = max
	}
	return wait
}

// JitterSleep spreads a base delay across +/-20% so synchronized retries
// don't land on the upstream at the same instant.
func JitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	const frac = 0.2
	span := float64(base) * frac
	low := float64(base) - span
	if low < 0 {
		low = 0
	}
	return time.Duration(low + rand.Float64()*2*span)
}
