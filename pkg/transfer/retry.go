package transfer

import (
	"errors"
	"fmt"
	"time"

	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/provider"
)

// RetryPolicy controls per-file retry behavior: exponential backoff from
// InitialDelay by BackoffMultiplier, capped at MaxDelay, for at most
// MaxAttempts tries.
type RetryPolicy struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	BackoffMultiplier float64
	MaxDelay          time.Duration
}

// DefaultRetryPolicy mirrors the agent's stock configuration: four tries,
// 5s initial delay doubling up to 5m.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       4,
		InitialDelay:      5 * time.Second,
		BackoffMultiplier: 2,
		MaxDelay:          5 * time.Minute,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.BackoffMultiplier < 1 {
		p.BackoffMultiplier = def.BackoffMultiplier
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	return p
}

// Delay returns how long to wait before retrying after the given 1-based
// attempt. The sequence is non-decreasing and capped at MaxDelay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	p = p.normalized()
	d := float64(p.InitialDelay)
	for i := 1; i < attempt; i++ {
		d *= p.BackoffMultiplier
		if d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// ChecksumMismatchError indicates the MD5 computed while streaming did not
// match the checksum the source reported. Treated as retryable: the usual
// cause is a corrupted read, not a corrupt source object.
type ChecksumMismatchError struct {
	Key      string
	Expected string
	Computed string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for %s: expected=%s computed=%s", e.Key, e.Expected, e.Computed)
}

// retryable reports whether a failed attempt should be retried with
// backoff rather than failed permanently.
func retryable(err error) bool {
	var mismatch *ChecksumMismatchError
	if errors.As(err, &mismatch) {
		return true
	}
	return provider.IsRetryable(err)
}
