package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/provider"
)

type fakeLister struct {
	objects []provider.ObjectSummary
	listErr error
	headErr error
	heads   []string
}

func (f *fakeLister) List(context.Context, provider.ListOptions) (*provider.ListResult, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &provider.ListResult{Objects: f.objects}, nil
}

func (f *fakeLister) Head(_ context.Context, key string) (*provider.ObjectMeta, error) {
	f.heads = append(f.heads, key)
	if f.headErr != nil {
		return nil, f.headErr
	}
	for _, obj := range f.objects {
		if obj.Key == key {
			return &provider.ObjectMeta{ObjectSummary: obj}, nil
		}
	}
	return nil, provider.ErrNotFound
}

func (f *fakeLister) Close() error { return nil }

type fakeWriter struct {
	mu        sync.Mutex
	putErr    error
	headErr   error
	deleteErr error
	puts      []string
	heads     []string
	deletes   []string
}

func (f *fakeWriter) PutObject(_ context.Context, key string, body io.Reader, _ int64) error {
	if _, err := io.ReadAll(body); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.puts = append(f.puts, key)
	return nil
}

func (f *fakeWriter) Head(_ context.Context, key string) (*provider.ObjectMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.heads = append(f.heads, key)
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &provider.ObjectMeta{ObjectSummary: provider.ObjectSummary{Key: key}}, nil
}

func (f *fakeWriter) DeleteObject(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletes = append(f.deletes, key)
	return nil
}

func resultByName(t *testing.T, results []CheckResult, name string) CheckResult {
	t.Helper()
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("no result named %s", name)
	return CheckResult{}
}

func TestRunAllChecksPass(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	deps := Deps{
		Source:       &fakeLister{},
		SourcePrefix: "reports/",
		Destination:  &fakeWriter{},
		StatePath:    statePath,
	}

	results, err := Run(context.Background(), deps, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.True(t, r.OK, r.Name)
	}
}

func TestRunReportsAllFailures(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(statePath, []byte("{not json"), 0o600))

	deps := Deps{
		Source:       &fakeLister{listErr: fmt.Errorf("list: %w", provider.ErrInvalidCredentials)},
		SourcePrefix: "reports/",
		Destination:  &fakeWriter{putErr: fmt.Errorf("put: %w", provider.ErrAccessDenied)},
		StatePath:    statePath,
	}

	results, err := Run(context.Background(), deps, zap.NewNop())
	require.Error(t, err)
	require.Len(t, results, 3, "later checks still run after a failure")

	src := resultByName(t, results, CheckSourceList)
	assert.False(t, src.OK)
	assert.Contains(t, src.Detail, "invalid credentials")

	dst := resultByName(t, results, CheckDestinationWrite)
	assert.False(t, dst.OK)
	assert.Contains(t, dst.Detail, "access denied")

	st := resultByName(t, results, CheckStateStore)
	assert.False(t, st.OK)
	assert.Contains(t, st.Detail, "corrupt")

	// First failure wins the returned error.
	assert.Contains(t, err.Error(), CheckSourceList)
}

func TestWriteProbeDeletesMarker(t *testing.T) {
	dst := &fakeWriter{}
	deps := Deps{
		Source:      &fakeLister{},
		Destination: dst,
		StatePath:   filepath.Join(t.TempDir(), "state.json"),
	}

	_, err := Run(context.Background(), deps, zap.NewNop())
	require.NoError(t, err)

	require.Len(t, dst.puts, 1)
	require.Len(t, dst.heads, 1)
	require.Len(t, dst.deletes, 1)
	assert.Equal(t, dst.puts[0], dst.heads[0], "read-back heads the uploaded marker")
	assert.Equal(t, dst.puts[0], dst.deletes[0])
	assert.True(t, strings.HasPrefix(dst.puts[0], "_connectivity/probe-"))
}

func TestWriteProbeFailsWhenMarkerUnreadable(t *testing.T) {
	dst := &fakeWriter{headErr: fmt.Errorf("head: %w", provider.ErrAccessDenied)}
	deps := Deps{
		Source:      &fakeLister{},
		Destination: dst,
		StatePath:   filepath.Join(t.TempDir(), "state.json"),
	}

	results, err := Run(context.Background(), deps, zap.NewNop())
	require.Error(t, err)

	probe := resultByName(t, results, CheckDestinationWrite)
	assert.False(t, probe.OK)
	assert.Contains(t, probe.Detail, "cannot read it back")
	require.Len(t, dst.deletes, 1, "marker cleanup still attempted")
}

func TestSourceCheckHeadsFirstListedObject(t *testing.T) {
	src := &fakeLister{objects: []provider.ObjectSummary{{Key: "reports/2024/11/28/a.csv.gz", Size: 10}}}
	deps := Deps{
		Source:       src,
		SourcePrefix: "reports/",
		Destination:  &fakeWriter{},
		StatePath:    filepath.Join(t.TempDir(), "state.json"),
	}

	results, err := Run(context.Background(), deps, zap.NewNop())
	require.NoError(t, err)

	check := resultByName(t, results, CheckSourceList)
	assert.True(t, check.OK)
	require.Len(t, src.heads, 1)
	assert.Equal(t, "reports/2024/11/28/a.csv.gz", src.heads[0])
}

func TestSourceCheckFailsWhenObjectUnreadable(t *testing.T) {
	src := &fakeLister{
		objects: []provider.ObjectSummary{{Key: "reports/2024/11/28/a.csv.gz", Size: 10}},
		headErr: fmt.Errorf("head: %w", provider.ErrAccessDenied),
	}
	deps := Deps{
		Source:       src,
		SourcePrefix: "reports/",
		Destination:  &fakeWriter{},
		StatePath:    filepath.Join(t.TempDir(), "state.json"),
	}

	results, err := Run(context.Background(), deps, zap.NewNop())
	require.Error(t, err)

	check := resultByName(t, results, CheckSourceList)
	assert.False(t, check.OK)
	assert.Contains(t, check.Detail, "cannot read it")
}

func TestWriteProbePassesWhenDeleteFails(t *testing.T) {
	dst := &fakeWriter{deleteErr: fmt.Errorf("delete: %w", provider.ErrAccessDenied)}
	deps := Deps{
		Source:      &fakeLister{},
		Destination: dst,
		StatePath:   filepath.Join(t.TempDir(), "state.json"),
	}

	results, err := Run(context.Background(), deps, zap.NewNop())
	require.NoError(t, err, "orphaned marker is a warning, not a failure")

	probe := resultByName(t, results, CheckDestinationWrite)
	assert.True(t, probe.OK)
	assert.Contains(t, probe.Detail, "left behind")
}

func TestRunMissingEndpoints(t *testing.T) {
	results, err := Run(context.Background(), Deps{}, zap.NewNop())
	require.Error(t, err)
	for _, r := range results {
		assert.False(t, r.OK, r.Name)
	}
}
