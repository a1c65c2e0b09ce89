package transfer

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/state"
)

// Filter decides which discovered objects enter the work set.
//
// Static admissibility (filename pattern, size cap) runs first; the
// stateful comparison against the ledger runs on whatever survives.
type Filter struct {
	pattern  string
	maxBytes int64
}

// NewFilter builds a filter. pattern is a glob matched case-insensitively
// against the object basename (e.g. "*.csv.gz"); maxBytes caps admissible
// object size, zero or less meaning unlimited.
func NewFilter(pattern string, maxBytes int64) (*Filter, error) {
	if pattern == "" {
		return nil, fmt.Errorf("filter: file pattern must not be empty")
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("filter: invalid file pattern %q", pattern)
	}
	return &Filter{pattern: strings.ToLower(pattern), maxBytes: maxBytes}, nil
}

// MatchesPattern reports whether the object's basename matches the
// configured filename pattern. Applied at discovery time.
func (f *Filter) MatchesPattern(key string) bool {
	ok, err := doublestar.Match(f.pattern, strings.ToLower(path.Base(key)))
	return err == nil && ok
}

// Oversize reports whether the object exceeds the configured size cap.
// Oversize objects are excluded and counted as skipped, never as failures.
func (f *Filter) Oversize(size int64) bool {
	return f.maxBytes > 0 && size > f.maxBytes
}

// ShouldTransfer applies the stateful decision rules, in order:
//
//  1. force always re-transfers
//  2. never seen (no record for the destination key)
//  3. size changed at the source
//  4. newer version at the source (created after the recorded creation)
//  5. otherwise the file is up to date
func (f *Filter) ShouldTransfer(desc ObjectDescriptor, existing state.Record, exists bool, force bool) bool {
	if force {
		return true
	}
	if !exists {
		return true
	}
	if desc.Size != existing.Size {
		return true
	}
	if !existing.SourceCreatedAt.IsZero() && desc.CreatedAt.After(existing.SourceCreatedAt) {
		return true
	}
	return false
}
