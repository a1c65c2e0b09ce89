package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/state"
	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/transfer"
)

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthz(t *testing.T) {
	srv := New("127.0.0.1:0", Deps{Version: "1.0.0"}, zap.NewNop())

	rec := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestStatus(t *testing.T) {
	store, err := state.Open(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)
	store.Upsert(state.Record{
		SourceIdentity: "reports/2024/11/28/report.csv.gz",
		DestinationKey: "2024-11-28_report.csv.gz",
		Size:           2048,
		TransferredAt:  time.Now().UTC(),
	})

	last := &transfer.Statistics{SyncID: "abc", Transferred: 1, Duration: time.Second}
	srv := New("127.0.0.1:0", Deps{
		Version:   "1.0.0",
		Store:     store,
		LastStats: func() *transfer.Statistics { return last },
	}, zap.NewNop())

	rec := get(t, srv, "/status")
	require.Equal(t, http.StatusOK, rec.Code)

	raw := rec.Body.String()
	assert.Contains(t, raw, `"duration_seconds":1`)

	var body statusResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &body))
	assert.Equal(t, "1.0.0", body.Version)
	require.NotNil(t, body.LastStats)
	assert.Equal(t, "abc", body.LastStats.SyncID)
	assert.Equal(t, 1, body.Ledger.Files)
	assert.Equal(t, int64(2048), body.Ledger.TotalBytes)
}

func TestMetricsRouteOptional(t *testing.T) {
	without := New("127.0.0.1:0", Deps{}, zap.NewNop())
	assert.Equal(t, http.StatusNotFound, get(t, without, "/metrics").Code)

	with := New("127.0.0.1:0", Deps{
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	}, zap.NewNop())
	assert.Equal(t, http.StatusOK, get(t, with, "/metrics").Code)
}
