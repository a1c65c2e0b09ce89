// Package state persists the transfer ledger that makes syncs idempotent
// and crash-resumable.
//
// The whole ledger is one JSON document: loaded once at startup, mutated in
// memory under a single mutex, and replaced atomically on every flush
// (write to a temp file in the same directory, then rename). The on-disk
// layout is wire-compatible with earlier deployments of the agent, so an
// existing state file keeps working across upgrades.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// SchemaVersion is written into every snapshot.
const SchemaVersion = "1.0"

// Record is the last-known transfer state for one destination key.
//
// For a given destination key at most one Record exists; a retransfer
// replaces it.
type Record struct {
	// SourceIdentity is the full object name at the source.
	SourceIdentity string `json:"oci_object_name"`

	// DestinationKey is the flat key the object was stored under.
	DestinationKey string `json:"s3_key"`

	// Size is the object size in bytes as listed at the source.
	Size int64 `json:"size"`

	// SourceCreatedAt is when the object was created at the source.
	SourceCreatedAt time.Time `json:"time_created"`

	// TransferredAt is when the transfer completed.
	TransferredAt time.Time `json:"time_transferred"`

	// ChecksumMD5 is the hex MD5 computed while streaming, when available.
	ChecksumMD5 string `json:"checksum_md5,omitempty"`

	// DurationSeconds is how long the transfer took.
	DurationSeconds float64 `json:"duration_seconds"`
}

// snapshot is the persisted document.
type snapshot struct {
	Version  string            `json:"version"`
	LastSync time.Time         `json:"last_sync"`
	Files    map[string]Record `json:"files"`
}

// Stats summarizes the ledger for diagnostics.
type Stats struct {
	Files      int
	TotalBytes int64
	LastSync   time.Time
}

// CorruptError indicates the state file exists but cannot be parsed.
// This is fatal: silently discarding the ledger would re-transfer
// everything, so the operator must repair or remove the file explicitly.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("state file %s is corrupt: %v (repair or remove it to continue)", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// Store is the mutex-guarded transfer ledger. Workers never touch it;
// only the orchestrator's outcome loop writes records.
type Store struct {
	mu   sync.Mutex
	path string
	snap snapshot
}

// Open loads the ledger at path. A missing file yields an empty ledger; a
// present-but-unreadable file is an error.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create state directory: %w", err)
		}
	}

	s := &Store{
		path: path,
		snap: snapshot{Version: SchemaVersion, Files: map[string]Record{}},
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}
	if snap.Files == nil {
		snap.Files = map[string]Record{}
	}
	if snap.Version == "" {
		snap.Version = SchemaVersion
	}
	s.snap = snap
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the record for a destination key, if one exists.
func (s *Store) Get(destinationKey string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.snap.Files[destinationKey]
	return rec, ok
}

// Upsert replaces the record for rec.DestinationKey in memory. Call Flush
// to persist.
func (s *Store) Upsert(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap.Files[rec.DestinationKey] = rec
}

// Purge drops records whose transfer completed before the retention
// horizon and returns how many were removed. A retention of zero or less
// keeps everything. Call Flush to persist.
func (s *Store) Purge(retention time.Duration) int {
	if retention <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-retention)
	removed := 0
	for key, rec := range s.snap.Files {
		if !rec.TransferredAt.IsZero() && rec.TransferredAt.Before(cutoff) {
			delete(s.snap.Files, key)
			removed++
		}
	}
	return removed
}

// Flush writes the ledger durably: marshal, write to a temp file alongside
// the target, fsync, rename. Readers never observe a half-written file.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snap.LastSync = time.Now().UTC()

	data, err := json.MarshalIndent(&s.snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("sync temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// Stats summarizes the ledger.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Files: len(s.snap.Files), LastSync: s.snap.LastSync}
	for _, rec := range s.snap.Files {
		st.TotalBytes += rec.Size
	}
	return st
}
