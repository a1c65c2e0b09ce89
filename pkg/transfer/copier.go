package transfer

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/provider"
)

// Copier executes the single-file transfer protocol:
//
//	Pending -> Streaming -> {Succeeded | Retrying -> Streaming | FailedPermanently}
//
// Each attempt opens fresh read and write streams and copies bytes through
// without buffering the object; memory per transfer is bounded by the
// destination's upload part size. The copier mutates no shared state - it
// returns an Outcome and the orchestrator does the bookkeeping.
type Copier struct {
	source provider.ObjectGetter
	dest   provider.ObjectPutter
	policy RetryPolicy
	verify bool
	log    *zap.Logger
}

// NewCopier builds a copier. verify enables checksum comparison against
// the source-reported Content-MD5 when one is available.
func NewCopier(source provider.ObjectGetter, dest provider.ObjectPutter, policy RetryPolicy, verify bool, log *zap.Logger) *Copier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Copier{
		source: source,
		dest:   dest,
		policy: policy.normalized(),
		verify: verify,
		log:    log,
	}
}

// Copy runs the protocol for one descriptor. In-flight streaming is not
// hard-aborted on cancellation (partial destination writes are worse than
// a late finish); cancellation is observed before each attempt and during
// backoff waits.
func (c *Copier) Copy(ctx context.Context, desc ObjectDescriptor) Outcome {
	start := time.Now()
	out := Outcome{
		DestinationKey: desc.DestinationKey,
		SourceIdentity: desc.SourceIdentity,
	}

	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			out.Err = err
			out.Duration = time.Since(start)
			return out
		}
		out.Attempts = attempt

		bytes, sum, err := c.copyOnce(ctx, desc)
		if err == nil {
			out.Succeeded = true
			out.BytesTransferred = bytes
			out.ChecksumMD5 = sum
			out.Duration = time.Since(start)
			return out
		}
		lastErr = err

		if !retryable(err) {
			c.log.Warn("transfer failed permanently",
				zap.String("source", desc.SourceIdentity),
				zap.Int("attempt", attempt),
				zap.Error(err))
			break
		}
		if attempt == c.policy.MaxAttempts {
			c.log.Warn("transfer retries exhausted",
				zap.String("source", desc.SourceIdentity),
				zap.Int("attempts", attempt),
				zap.Error(err))
			break
		}

		delay := c.policy.Delay(attempt)
		c.log.Info("transfer attempt failed, retrying",
			zap.String("source", desc.SourceIdentity),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			out.Err = ctx.Err()
			out.Duration = time.Since(start)
			return out
		}
	}

	out.Err = lastErr
	out.Duration = time.Since(start)
	return out
}

// copyOnce performs one Streaming pass: open both streams, pipe bytes
// through an MD5 tee, verify if enabled.
func (c *Copier) copyOnce(ctx context.Context, desc ObjectDescriptor) (int64, string, error) {
	// Once streaming starts it runs to completion even if the sync is
	// cancelled; the dispatch loop stops feeding new work instead.
	streamCtx := context.WithoutCancel(ctx)

	stream, err := c.source.GetObject(streamCtx, desc.SourceIdentity)
	if err != nil {
		return 0, "", err
	}
	defer func() { _ = stream.Body.Close() }()

	hasher := md5.New()
	counter := &countingReader{r: io.TeeReader(stream.Body, hasher)}

	size := stream.ContentLength
	if size < 0 {
		size = desc.Size
	}

	if err := c.dest.PutObject(streamCtx, desc.DestinationKey, counter, size); err != nil {
		return counter.n, "", err
	}

	sum := hex.EncodeToString(hasher.Sum(nil))
	if c.verify && stream.ContentMD5 != "" {
		expected, decodeErr := base64.StdEncoding.DecodeString(stream.ContentMD5)
		if decodeErr == nil && hex.EncodeToString(expected) != sum {
			return counter.n, sum, &ChecksumMismatchError{
				Key:      desc.SourceIdentity,
				Expected: hex.EncodeToString(expected),
				Computed: sum,
			}
		}
	}

	return counter.n, sum, nil
}

// countingReader tracks bytes read through it. Not safe for concurrent
// use; each transfer owns its own.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
