package provider

import (
	"context"
	"io"
)

// Optional provider capability interfaces, detected via type assertions.
// The core Provider interface stays intentionally small: the source side
// only ever reads, the destination side only ever writes.

// ObjectStream is an open read stream plus the stream-level metadata the
// copier needs for validation.
type ObjectStream struct {
	// Body is the content stream. The caller owns closing it.
	Body io.ReadCloser

	// ContentLength is the size reported at open time, or -1 if unknown.
	ContentLength int64

	// ContentMD5 is the base64-encoded MD5 of the content when the store
	// reports one. Empty when unavailable (e.g. multipart-uploaded
	// objects), in which case checksum verification is skipped.
	ContentMD5 string
}

// ObjectGetter can open a streaming read of an object.
type ObjectGetter interface {
	GetObject(ctx context.Context, key string) (*ObjectStream, error)
}

// ObjectPutter can create or overwrite an object from a stream.
//
// Implementations must not buffer the whole body: uploads are expected to
// proceed in bounded chunks regardless of contentLength.
type ObjectPutter interface {
	PutObject(ctx context.Context, key string, body io.Reader, contentLength int64) error
}

// ObjectDeleter can delete objects. Used by the connectivity write probe.
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, key string) error
}
