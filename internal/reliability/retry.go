// Package reliability holds small retry helpers shared by outbound
// HTTP delivery paths.
package reliability

import "time"

// RetryPolicy bounds a retry loop: at most Attempts tries, with an
// exponential delay between them starting at Base and capped at Cap.
type RetryPolicy struct {
	Attempts int
	Base     time.Duration
	Cap      time.Duration
}

// DefaultRetryPolicy suits fire-and-forget webhook delivery: a few quick
// retries, never holding the worker for more than a couple of seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: 3,
		Base:     200 * time.Millisecond,
		Cap:      2 * time.Second,
	}
}

// Backoff returns the delay before the given retry attempt. Attempt 0 is
// the first retry.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return p.Base
	}
	d := p.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= p.Cap {
			return p.Cap
		}
	}
	return d
}

// RetryableStatus reports whether an HTTP status code is worth retrying.
// Client errors other than 429 are permanent.
func RetryableStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
