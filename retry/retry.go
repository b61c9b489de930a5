// Package retry implements the bounded exponential backoff every external
// call in the pipeline applies before surfacing a hard failure.
package retry

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"
)

// Policy bounds a retry loop: at most MaxAttempts calls, sleeping
// BaseDelay * Factor^attempt (±25% jitter) between them, retrying only
// errors Retryable accepts.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Factor      float64
	Retryable   func(error) bool
}

// DefaultPolicy is the pipeline-wide contract for rate-limited collaborators:
// 5 attempts, delays doubling from 2s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		MaxDelay:    60 * time.Second,
		Factor:      2.0,
		Retryable:   IsRateLimit,
	}
}

// IsRateLimit reports whether an error looks like a rate-limit or quota
// signal from an external API.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "resource exhausted")
}

// Do runs fn under the policy. The last error is returned once attempts are
// exhausted or a non-retryable error occurs. Sleeps respect ctx cancellation.
func Do(ctx context.Context, policy Policy, fn func() error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Factor <= 0 {
		policy.Factor = 2.0
	}

	var lastErr error
	delay := policy.BaseDelay
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if policy.Retryable != nil && !policy.Retryable(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxAttempts-1 {
			break
		}

		select {
		case <-time.After(jitter(delay)):
		case <-ctx.Done():
			return errors.Join(ctx.Err(), lastErr)
		}

		delay = time.Duration(float64(delay) * policy.Factor)
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
	return lastErr
}

// jitter spreads a delay by ±25% so concurrent runs don't thunder in lockstep.
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + time.Duration(float64(d)*0.25*(2*rand.Float64()-1))
}
