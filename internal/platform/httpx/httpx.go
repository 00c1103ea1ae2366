// Package httpx holds retry classification and backoff helpers shared by
// outbound HTTP clients.
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

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatusCode() int
}

// RetryableStatus reports whether a status code is worth another attempt:
// timeouts, rate limits, and server-side failures.
func RetryableStatus(code int) bool {
	switch {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= 500 && code <= 599:
		return true
	default:
		return false
	}
}

// Retryable classifies an error from an outbound request. Context
// cancellation is retryable here; callers check their own deadline before
// each attempt and stop there.
func Retryable(err error) bool {
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
	var sc StatusCoder
	if errors.As(err, &sc) {
		return RetryableStatus(sc.HTTPStatusCode())
	}
	return false
}

// NextDelay computes the sleep before retry attempt n (0-based): exponential
// backoff from base, overridden by the server's Retry-After header when
// present, capped at max, with +/-20% jitter so synchronized clients spread
// out.
func NextDelay(resp *http.Response, attempt int, base, max time.Duration) time.Duration {
	delay := base
	for i := 0; i < attempt && delay < max; i++ {
		delay *= 2
	}
	if ra := retryAfter(resp); ra > 0 {
		delay = ra
	}
	if max > 0 && delay > max {
		delay = max
	}
	return jitter(delay)
}

// retryAfter reads the Retry-After header, either delta-seconds or an
// HTTP-date.
func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	raw := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if raw == "" {
		return 0
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(raw); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	// Uniform over [0.8d, 1.2d].
	f := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(d) * f)
}
