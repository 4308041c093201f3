package ratelimit

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"time"
)

// FetchRetryError reports an exhausted or aborted fetch.
type FetchRetryError struct {
	URL        string
	Attempts   int
	LastStatus int
	LastError  error
}

func (e *FetchRetryError) Error() string {
	msg := fmt.Sprintf("failed to fetch %s after %d attempts", e.URL, e.Attempts)
	if e.LastStatus != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.LastStatus)
	}
	if e.LastError != nil {
		msg += ": " + e.LastError.Error()
	}
	return msg
}

func (e *FetchRetryError) Unwrap() error {
	return e.LastError
}

// IsRetryableStatus checks if an HTTP status code is retryable.
// Retryable: 429 and 5xx.
func IsRetryableStatus(status int) bool {
	return status == 429 || (status >= 500 && status < 600)
}

// CalculateBackoff returns the exponential backoff delay for an attempt,
// with 0-25% jitter.
func CalculateBackoff(attempt int, config Config) time.Duration {
	exponentialMs := float64(config.InitialBackoffMs) * math.Pow(2.0, float64(attempt))
	cappedMs := math.Min(exponentialMs, float64(config.MaxBackoffMs))
	jitterMs := rand.Float64() * 0.25 * cappedMs

	return time.Duration(cappedMs+jitterMs) * time.Millisecond
}

// CalculateRateLimitBackoff returns the backoff after an HTTP 429. A valid
// Retry-After header wins; otherwise the exponent base is 3 instead of 2.
func CalculateRateLimitBackoff(attempt int, config Config, retryAfterHeader string) time.Duration {
	if retryAfterHeader != "" {
		if seconds, err := strconv.Atoi(retryAfterHeader); err == nil && seconds > 0 {
			jitter := time.Duration(rand.Intn(1000)) * time.Millisecond
			return time.Duration(seconds)*time.Second + jitter
		}
	}

	exponentialMs := float64(config.InitialBackoffMs) * math.Pow(3.0, float64(attempt))
	cappedMs := math.Min(exponentialMs, float64(config.MaxBackoffMs))
	jitterMs := rand.Float64() * 0.25 * cappedMs

	return time.Duration(cappedMs+jitterMs) * time.Millisecond
}
