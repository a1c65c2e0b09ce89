package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/transfer"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return string(body)
}

func TestObserveSyncCounts(t *testing.T) {
	m := New()
	m.ObserveSync(&transfer.Statistics{
		Discovered:       5,
		Transferred:      3,
		SkippedUpToDate:  1,
		SkippedOversize:  1,
		Failed:           0,
		BytesTransferred: 4096,
		Duration:         2 * time.Second,
	}, nil)
	m.ObserveSync(nil, errors.New("state flush failed"))

	body := scrape(t, m)
	assert.Contains(t, body, `agent_sync_runs_total{result="ok"} 1`)
	assert.Contains(t, body, `agent_sync_runs_total{result="error"} 1`)
	assert.Contains(t, body, "agent_files_transferred_total 3")
	assert.Contains(t, body, `agent_files_skipped_total{reason="up_to_date"} 1`)
	assert.Contains(t, body, `agent_files_skipped_total{reason="oversize"} 1`)
	assert.Contains(t, body, "agent_bytes_transferred_total 4096")
}

func TestRegistryIsPrivate(t *testing.T) {
	body := scrape(t, New())
	assert.NotContains(t, body, "go_goroutines", "default registry series must not leak")
}
