package github

import (
	"context"
	"net/http"
	"strings"
	"time"

	gh "github.com/google/go-github/v57/github"
)

// RetryConfig tunes the transient-error retry wrapper around GitHub API
// calls.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryConfig returns the standard retry tuning.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}
}

// do runs op, retrying on transient GitHub errors (rate limits, 5xx) with
// exponential backoff. Non-retryable errors and context cancellation are
// returned immediately.
func (c *Client) do(ctx context.Context, op func() (*gh.Response, error)) (*gh.Response, error) {
	backoff := c.retry.InitialBackoff
	var resp *gh.Response
	var err error

	for attempt := 0; ; attempt++ {
		resp, err = op()
		if err == nil {
			return resp, nil
		}
		if attempt >= c.retry.MaxRetries || !isRetryable(resp, err) {
			return resp, err
		}

		delay := backoff
		// Rate limit responses carry the reset time; wait it out when it
		// is longer than the computed backoff.
		if rle, ok := err.(*gh.RateLimitError); ok {
			if until := time.Until(rle.Rate.Reset.Time); until > delay {
				delay = until
			}
		}
		if delay > c.retry.MaxBackoff {
			delay = c.retry.MaxBackoff
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return resp, ctx.Err()
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * c.retry.Multiplier)
		if backoff > c.retry.MaxBackoff {
			backoff = c.retry.MaxBackoff
		}
	}
}

// isRetryable reports whether an API error is worth retrying: primary and
// secondary rate limits, 429, and server errors.
func isRetryable(resp *gh.Response, err error) bool {
	switch err.(type) {
	case *gh.RateLimitError, *gh.AbuseRateLimitError:
		return true
	}
	if resp != nil {
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return true
		case resp.StatusCode >= 500 && resp.StatusCode < 600:
			return true
		case resp.StatusCode == http.StatusForbidden &&
			strings.Contains(strings.ToLower(errString(err)), "rate limit"):
			return true
		}
	}
	return false
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
