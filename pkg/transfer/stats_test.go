package transfer

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatisticsJSONEmitsSeconds(t *testing.T) {
	stats := &Statistics{
		SyncID:           "abc",
		Discovered:       2,
		Transferred:      1,
		BytesTransferred: 2048,
		Duration:         1500 * time.Millisecond,
	}

	data, err := json.Marshal(stats)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))

	assert.Equal(t, 1.5, body["duration_seconds"])
	assert.NotContains(t, body, "duration", "raw nanoseconds must not leak into operator-facing JSON")
	assert.Equal(t, "abc", body["sync_id"])
	assert.Equal(t, float64(2048), body["bytes_transferred"])
}
