package transfer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/provider"
)

func TestRetryPolicyDelay(t *testing.T) {
	p := RetryPolicy{
		MaxAttempts:       5,
		InitialDelay:      5 * time.Second,
		BackoffMultiplier: 2,
		MaxDelay:          5 * time.Minute,
	}

	assert.Equal(t, 5*time.Second, p.Delay(1))
	assert.Equal(t, 10*time.Second, p.Delay(2))
	assert.Equal(t, 20*time.Second, p.Delay(3))
	assert.Equal(t, 40*time.Second, p.Delay(4))

	// Deep attempts stay capped.
	assert.Equal(t, 5*time.Minute, p.Delay(10))
	assert.Equal(t, 5*time.Minute, p.Delay(60))
}

func TestRetryPolicyDelayNonDecreasing(t *testing.T) {
	p := DefaultRetryPolicy()
	prev := time.Duration(0)
	for attempt := 1; attempt <= 12; attempt++ {
		d := p.Delay(attempt)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		assert.LessOrEqual(t, d, p.MaxDelay)
		prev = d
	}
}

func TestRetryPolicyNormalizedDefaults(t *testing.T) {
	got := RetryPolicy{}.normalized()
	assert.Equal(t, DefaultRetryPolicy(), got)

	// Partial configuration keeps what was set.
	got = RetryPolicy{MaxAttempts: 7}.normalized()
	assert.Equal(t, 7, got.MaxAttempts)
	assert.Equal(t, DefaultRetryPolicy().InitialDelay, got.InitialDelay)
}

func TestRetryableClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"throttled", provider.ErrThrottled, true},
		{"unavailable", provider.ErrUnavailable, true},
		{"wrapped unavailable", fmt.Errorf("put: %w", provider.ErrUnavailable), true},
		{"checksum mismatch", &ChecksumMismatchError{Key: "k"}, true},
		{"not found", provider.ErrNotFound, false},
		{"access denied", provider.ErrAccessDenied, false},
		{"invalid credentials", provider.ErrInvalidCredentials, false},
		{"cancelled", context.Canceled, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retryable(tt.err))
		})
	}
}

func TestChecksumMismatchErrorMessage(t *testing.T) {
	err := &ChecksumMismatchError{Key: "reports/a.csv.gz", Expected: "aa", Computed: "bb"}
	assert.Contains(t, err.Error(), "reports/a.csv.gz")
	assert.Contains(t, err.Error(), "aa")
	assert.Contains(t, err.Error(), "bb")

	var target *ChecksumMismatchError
	assert.True(t, errors.As(fmt.Errorf("copy: %w", err), &target))
}
