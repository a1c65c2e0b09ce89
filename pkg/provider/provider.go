// Package provider defines the minimal object-storage abstractions the
// transfer engine is written against.
//
// The orchestrator never talks to a cloud SDK directly: the OCI source and
// the S3 destination are supplied as Provider implementations (see the oci
// and s3 subpackages). Authentication is the adapter's concern - providers
// use their SDK's standard credential chain.
package provider

import (
	"context"
	"time"
)

// Provider abstracts the listing and metadata surface of an object store.
//
// Implementations must:
//   - Support pagination via continuation tokens
//   - Be safe for concurrent use
type Provider interface {
	// List returns a page of objects with the given prefix.
	// Use ContinuationToken from ListResult for subsequent pages.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Head returns metadata for a single object.
	// Returns ErrNotFound if the object does not exist.
	Head(ctx context.Context, key string) (*ObjectMeta, error)

	// Close releases any resources held by the provider.
	Close() error
}

// ListOptions configures a List operation.
type ListOptions struct {
	// Prefix filters results to keys starting with this value.
	Prefix string

	// ContinuationToken resumes listing from a previous ListResult.
	// Empty string starts from the beginning.
	ContinuationToken string

	// MaxKeys limits the number of objects returned per page.
	// Zero uses the provider default (typically 1000).
	MaxKeys int
}

// ListResult contains a page of objects from a List operation.
type ListResult struct {
	Objects []ObjectSummary

	// ContinuationToken retrieves the next page. Empty means no more pages.
	ContinuationToken string

	// IsTruncated indicates whether more results are available.
	IsTruncated bool
}

// ObjectSummary is the per-object metadata returned by List.
type ObjectSummary struct {
	// Key is the full object key (path) in the bucket.
	Key string

	// Size is the object size in bytes.
	Size int64

	// ETag is the entity tag reported by the store.
	ETag string

	// TimeCreated is when the object was created at the source. Stores
	// that only report a modification time map it here.
	TimeCreated time.Time
}

// ObjectMeta is the full metadata for a single object, returned by Head.
type ObjectMeta struct {
	ObjectSummary

	// ContentType is the MIME type of the object.
	ContentType string

	// ContentMD5 is the base64-encoded MD5 of the content, when the store
	// reports one (single-part uploads). Empty otherwise.
	ContentMD5 string
}

// Type identifies a storage backend.
type Type string

const (
	// TypeOCI is Oracle Cloud Infrastructure Object Storage.
	TypeOCI Type = "oci"

	// TypeS3 is AWS S3 or S3-compatible storage.
	TypeS3 Type = "s3"
)

func (t Type) String() string {
	return string(t)
}
