package transfer

import (
	"encoding/json"
	"time"
)

// Statistics aggregates one Sync invocation. Returned to the caller
// (scheduler or CLI) and logged; per-file failures live here, they never
// escalate out of Sync.
type Statistics struct {
	// SyncID correlates log lines and statistics for one invocation.
	SyncID string `json:"sync_id"`

	// Discovered counts admissible candidates seen at the source
	// (objects matching the filename pattern under the polled prefixes).
	Discovered int `json:"discovered"`

	// Transferred counts files copied successfully this pass.
	Transferred int `json:"transferred"`

	// SkippedUpToDate counts files the state ledger showed as already
	// transferred and unchanged.
	SkippedUpToDate int `json:"skipped_up_to_date"`

	// SkippedOversize counts files excluded by the size limit. These are
	// skips, not failures.
	SkippedOversize int `json:"skipped_oversize"`

	// Failed counts files whose transfer failed permanently this pass.
	Failed int `json:"failed"`

	// ListErrors counts dates whose discovery listing failed entirely.
	ListErrors int `json:"list_errors"`

	// BytesTransferred is the payload total for successful transfers.
	BytesTransferred int64 `json:"bytes_transferred"`

	// Duration is the wall-clock time of the whole Sync call. It is
	// emitted as duration_seconds in JSON; raw nanoseconds are useless
	// to operators.
	Duration time.Duration `json:"-"`
}

// MarshalJSON emits the duration in seconds, matching the ledger's
// duration_seconds field.
func (s *Statistics) MarshalJSON() ([]byte, error) {
	type plain Statistics
	return json.Marshal(struct {
		*plain
		DurationSeconds float64 `json:"duration_seconds"`
	}{(*plain)(s), s.Duration.Seconds()})
}
