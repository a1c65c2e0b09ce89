// Package preflight verifies connectivity and permissions before the
// daemon starts moving data: can we list the source, write to the
// destination, and open the state ledger.
package preflight

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/provider"
	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/state"
)

// Check names are stable strings used in command output.
const (
	CheckSourceList       = "source.list"
	CheckDestinationWrite = "destination.write"
	CheckStateStore       = "state.store"
)

// CheckResult is the outcome of one connectivity check.
type CheckResult struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Method string `json:"method"`
	Detail string `json:"detail,omitempty"`
}

// Destination is the write surface the probe exercises. Head reads the
// probe marker back after the upload.
type Destination interface {
	provider.ObjectPutter
	provider.ObjectDeleter
	Head(ctx context.Context, key string) (*provider.ObjectMeta, error)
}

// Deps are the endpoints under test.
type Deps struct {
	Source       provider.Provider
	SourcePrefix string
	Destination  Destination
	StatePath    string
}

// Run executes all checks and reports every result; it does not stop at
// the first failure, so one `test` invocation surfaces everything that is
// broken. The returned error is the first failure, nil when all passed.
func Run(ctx context.Context, deps Deps, log *zap.Logger) ([]CheckResult, error) {
	if log == nil {
		log = zap.NewNop()
	}

	results := []CheckResult{
		checkSourceList(ctx, deps),
		checkDestinationWrite(ctx, deps, log),
		checkStateStore(deps.StatePath),
	}

	var firstErr error
	for _, r := range results {
		if r.OK {
			log.Info("connectivity check passed", zap.String("check", r.Name))
			continue
		}
		log.Error("connectivity check failed",
			zap.String("check", r.Name),
			zap.String("detail", r.Detail))
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %s", r.Name, r.Detail)
		}
	}
	return results, firstErr
}

// checkSourceList verifies the source bucket is listable with a
// single-key probe, then heads the first listed object so object-level
// read permissions are proven too, not just bucket listing.
func checkSourceList(ctx context.Context, deps Deps) CheckResult {
	res := CheckResult{
		Name:   CheckSourceList,
		Method: fmt.Sprintf("List(prefix=%q, maxKeys=1)+Head(first key)", deps.SourcePrefix),
	}
	if deps.Source == nil {
		res.Detail = "no source configured"
		return res
	}

	listed, err := deps.Source.List(ctx, provider.ListOptions{
		Prefix:  deps.SourcePrefix,
		MaxKeys: 1,
	})
	if err != nil {
		res.Detail = normalizeDetail(err)
		return res
	}

	if len(listed.Objects) == 0 {
		res.OK = true
		res.Detail = "prefix is empty, skipped object read check"
		return res
	}

	key := listed.Objects[0].Key
	if _, err := deps.Source.Head(ctx, key); err != nil {
		res.Detail = fmt.Sprintf("listed %s but cannot read it: %s", key, normalizeDetail(err))
		return res
	}
	res.OK = true
	return res
}

// checkDestinationWrite uploads a small marker under a reserved prefix,
// heads it to confirm the write landed, and deletes it. A failed delete
// does not fail the check; the marker is harmless and the write
// permission was proven.
func checkDestinationWrite(ctx context.Context, deps Deps, log *zap.Logger) CheckResult {
	res := CheckResult{
		Name:   CheckDestinationWrite,
		Method: "PutObject+Head+DeleteObject(marker)",
	}
	if deps.Destination == nil {
		res.Detail = "no destination configured"
		return res
	}

	body := fmt.Sprintf("connectivity probe %s", time.Now().UTC().Format(time.RFC3339))
	key := fmt.Sprintf("_connectivity/probe-%s.txt", uuid.NewString())

	if err := deps.Destination.PutObject(ctx, key, strings.NewReader(body), int64(len(body))); err != nil {
		res.Detail = normalizeDetail(err)
		return res
	}

	if _, err := deps.Destination.Head(ctx, key); err != nil {
		res.Detail = fmt.Sprintf("wrote marker %s but cannot read it back: %s", key, normalizeDetail(err))
	} else {
		res.OK = true
	}

	if err := deps.Destination.DeleteObject(ctx, key); err != nil {
		log.Warn("could not delete connectivity marker",
			zap.String("key", key),
			zap.Error(err))
		if res.OK {
			res.Detail = fmt.Sprintf("write ok; marker %s left behind (delete failed: %v)", key, err)
		}
	}
	return res
}

// checkStateStore opens the ledger the way the daemon would at startup.
func checkStateStore(path string) CheckResult {
	res := CheckResult{
		Name:   CheckStateStore,
		Method: fmt.Sprintf("Open(%s)", path),
	}
	if path == "" {
		res.Detail = "no state file configured"
		return res
	}

	store, err := state.Open(path)
	if err != nil {
		res.Detail = err.Error()
		return res
	}

	stats := store.Stats()
	res.OK = true
	res.Detail = fmt.Sprintf("%d files tracked, %s", stats.Files, humanize.Bytes(uint64(stats.TotalBytes)))
	return res
}

// normalizeDetail maps provider errors to operator-facing hints.
func normalizeDetail(err error) string {
	switch {
	case provider.IsInvalidCredentials(err):
		return fmt.Sprintf("invalid credentials: %v", err)
	case provider.IsAccessDenied(err):
		return fmt.Sprintf("access denied (check bucket policy): %v", err)
	case provider.IsBucketNotFound(err):
		return fmt.Sprintf("bucket not found: %v", err)
	case provider.IsThrottled(err):
		return fmt.Sprintf("throttled: %v", err)
	default:
		return err.Error()
	}
}
