// Package transfer implements the orchestration engine: discovery of
// candidate report objects per logical date, filtering against the state
// ledger, bounded-concurrency streaming transfer with retry, and per-file
// outcome aggregation.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/naming"
	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/provider"
	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/state"
)

// datePrefixLayout structures source prefixes by calendar date, the layout
// cost-report exports use: <prefix>2024/11/28/<files>.
const datePrefixLayout = "2006/01/02"

const (
	stateFlushAttempts   = 3
	stateFlushRetryDelay = 500 * time.Millisecond
)

// Source is the source-side surface the orchestrator needs: paginated
// listing plus streaming reads.
type Source interface {
	provider.Provider
	provider.ObjectGetter
}

// Config configures an Orchestrator.
type Config struct {
	// SourcePrefix is prepended to the per-date prefix (e.g.
	// "FOCUS Reports/").
	SourcePrefix string

	// Concurrency is the worker-pool size for parallel transfers.
	// Default: 3.
	Concurrency int

	// ListRateLimit caps source List calls per second. Zero disables
	// limiting.
	ListRateLimit float64

	// DryRun logs and counts what would transfer without opening streams
	// or mutating state.
	DryRun bool

	// VerifyChecksum enables MD5 comparison against the source-reported
	// checksum when one is available.
	VerifyChecksum bool

	// Retry is the per-file backoff policy.
	Retry RetryPolicy
}

// DefaultConfig returns the stock orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:    3,
		VerifyChecksum: true,
		Retry:          DefaultRetryPolicy(),
	}
}

// Orchestrator drives one Sync pass end to end. Concurrent Sync calls are
// serialized by an internal mutex: filtering is only correct against a
// ledger no other pass is mutating.
type Orchestrator struct {
	mu sync.Mutex

	source  Source
	dest    provider.ObjectPutter
	namer   *naming.Namer
	filter  *Filter
	store   *state.Store
	copier  *Copier
	limiter *rate.Limiter
	cfg     Config
	log     *zap.Logger
}

// New creates an Orchestrator.
func New(source Source, dest provider.ObjectPutter, namer *naming.Namer, filter *Filter, store *state.Store, cfg Config, log *zap.Logger) *Orchestrator {
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	cfg.Retry = cfg.Retry.normalized()
	if log == nil {
		log = zap.NewNop()
	}

	o := &Orchestrator{
		source: source,
		dest:   dest,
		namer:  namer,
		filter: filter,
		store:  store,
		copier: NewCopier(source, dest, cfg.Retry, cfg.VerifyChecksum, log),
		cfg:    cfg,
		log:    log,
	}
	if cfg.ListRateLimit > 0 {
		o.limiter = rate.NewLimiter(rate.Limit(cfg.ListRateLimit), 1)
	}
	return o
}

// Sync discovers, filters, and transfers report objects for the given
// logical dates.
//
// Per-file failures never abort the pass; they surface in Statistics and
// logs. The only errors returned are call-level ones: cancellation, or a
// state ledger that cannot be persisted.
func (o *Orchestrator) Sync(ctx context.Context, dates []time.Time, force bool) (*Statistics, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	start := time.Now()
	stats := &Statistics{SyncID: uuid.NewString()}
	log := o.log.With(zap.String("sync_id", stats.SyncID))

	if force {
		log.Info("starting sync", zap.Int("dates", len(dates)), zap.Bool("force", true))
	} else {
		log.Info("starting sync", zap.Int("dates", len(dates)))
	}

	descriptors := o.discoverAll(ctx, dates, stats, log)
	stats.Discovered = len(descriptors)
	if err := ctx.Err(); err != nil {
		stats.Duration = time.Since(start)
		return stats, err
	}

	work := o.buildWorkSet(descriptors, force, stats, log)
	log.Info("work set ready",
		zap.Int("discovered", stats.Discovered),
		zap.Int("to_transfer", len(work)),
		zap.Int("skipped_up_to_date", stats.SkippedUpToDate),
		zap.Int("skipped_oversize", stats.SkippedOversize))
	if err := ctx.Err(); err != nil {
		stats.Duration = time.Since(start)
		return stats, err
	}

	var fatal error
	if len(work) > 0 {
		fatal = o.dispatch(ctx, work, stats, log)
	}

	stats.Duration = time.Since(start)
	log.Info("sync finished",
		zap.Int("discovered", stats.Discovered),
		zap.Int("transferred", stats.Transferred),
		zap.Int("skipped_up_to_date", stats.SkippedUpToDate),
		zap.Int("skipped_oversize", stats.SkippedOversize),
		zap.Int("failed", stats.Failed),
		zap.Int("list_errors", stats.ListErrors),
		zap.Int64("bytes", stats.BytesTransferred),
		zap.Duration("duration", stats.Duration))

	if fatal != nil {
		return stats, fatal
	}
	return stats, ctx.Err()
}

// discoverAll lists candidates per date, oldest first. A date whose
// listing fails contributes nothing this pass; the sync continues.
func (o *Orchestrator) discoverAll(ctx context.Context, dates []time.Time, stats *Statistics, log *zap.Logger) []ObjectDescriptor {
	sorted := make([]time.Time, len(dates))
	copy(sorted, dates)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var descriptors []ObjectDescriptor
	for _, day := range sorted {
		if ctx.Err() != nil {
			return descriptors
		}

		prefix := o.cfg.SourcePrefix + day.Format(datePrefixLayout) + "/"
		found, err := o.discoverPrefix(ctx, prefix, day)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return descriptors
			}
			stats.ListErrors++
			log.Warn("listing failed, skipping date this pass",
				zap.String("prefix", prefix),
				zap.Error(err))
			continue
		}

		log.Debug("discovered objects",
			zap.String("prefix", prefix),
			zap.Int("count", len(found)))
		descriptors = append(descriptors, found...)
	}
	return descriptors
}

func (o *Orchestrator) discoverPrefix(ctx context.Context, prefix string, day time.Time) ([]ObjectDescriptor, error) {
	var descriptors []ObjectDescriptor
	var token string
	for {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				return descriptors, err
			}
		}

		res, err := o.source.List(ctx, provider.ListOptions{
			Prefix:            prefix,
			ContinuationToken: token,
		})
		if err != nil {
			return descriptors, err
		}

		for _, obj := range res.Objects {
			if !o.filter.MatchesPattern(obj.Key) {
				continue
			}
			descriptors = append(descriptors, ObjectDescriptor{
				SourceIdentity: obj.Key,
				Size:           obj.Size,
				CreatedAt:      obj.TimeCreated,
				LogicalDate:    day,
			})
		}

		if !res.IsTruncated || res.ContinuationToken == "" {
			return descriptors, nil
		}
		token = res.ContinuationToken
	}
}

// buildWorkSet applies the size cap and the stateful filter, names each
// survivor, and deduplicates by destination key so no key is submitted
// twice in one pass.
func (o *Orchestrator) buildWorkSet(descriptors []ObjectDescriptor, force bool, stats *Statistics, log *zap.Logger) []ObjectDescriptor {
	work := make([]ObjectDescriptor, 0, len(descriptors))
	claimed := make(map[string]string, len(descriptors))

	for _, desc := range descriptors {
		if o.filter.Oversize(desc.Size) {
			stats.SkippedOversize++
			log.Warn("skipping oversize object",
				zap.String("source", desc.SourceIdentity),
				zap.Int64("size", desc.Size))
			continue
		}

		desc.DestinationKey = o.namer.DestinationKey(desc.SourceIdentity, desc.LogicalDate)

		if prior, dup := claimed[desc.DestinationKey]; dup {
			log.Warn("duplicate destination key in work set, keeping first",
				zap.String("destination", desc.DestinationKey),
				zap.String("kept", prior),
				zap.String("dropped", desc.SourceIdentity))
			continue
		}

		existing, exists := o.store.Get(desc.DestinationKey)
		if !o.filter.ShouldTransfer(desc, existing, exists, force) {
			stats.SkippedUpToDate++
			continue
		}

		claimed[desc.DestinationKey] = desc.SourceIdentity
		work = append(work, desc)
	}
	return work
}

// dispatch runs the work set through the bounded pool and consumes
// outcomes as they complete, persisting the ledger after every success.
// The returned error, if any, is a fatal state-persistence failure.
func (o *Orchestrator) dispatch(ctx context.Context, work []ObjectDescriptor, stats *Statistics, log *zap.Logger) error {
	workers := o.cfg.Concurrency
	if workers > len(work) {
		workers = len(work)
	}

	// submitCtx gates submission only: it stops feeding workers when the
	// caller cancels or the ledger stops persisting, while in-flight
	// transfers run to completion.
	submitCtx, stopSubmitting := context.WithCancel(ctx)
	defer stopSubmitting()

	workCh := make(chan ObjectDescriptor)
	outCh := make(chan Outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for desc := range workCh {
				outCh <- o.transferOne(ctx, desc)
			}
		}()
	}

	go func() {
		defer close(workCh)
		for _, desc := range work {
			select {
			case <-submitCtx.Done():
				return
			case workCh <- desc:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outCh)
	}()

	var fatal error
	for out := range outCh {
		switch {
		case out.Succeeded:
			stats.Transferred++
			stats.BytesTransferred += out.BytesTransferred
			log.Info("transferred",
				zap.String("source", out.SourceIdentity),
				zap.String("destination", out.DestinationKey),
				zap.Int64("bytes", out.BytesTransferred),
				zap.Int("attempts", out.Attempts),
				zap.Duration("took", out.Duration))

			if o.cfg.DryRun {
				continue
			}

			o.store.Upsert(state.Record{
				SourceIdentity:  out.SourceIdentity,
				DestinationKey:  out.DestinationKey,
				Size:            out.BytesTransferred,
				SourceCreatedAt: out.sourceCreatedAt,
				TransferredAt:   time.Now().UTC(),
				ChecksumMD5:     out.ChecksumMD5,
				DurationSeconds: out.Duration.Seconds(),
			})

			if fatal != nil {
				// The ledger already failed to persist; record in
				// memory only and make the at-risk window visible.
				log.Error("transfer succeeded but state is not durably recorded",
					zap.String("destination", out.DestinationKey))
				continue
			}
			if err := o.flushState(ctx); err != nil {
				fatal = err
				stopSubmitting()
				log.Error("state flush failing, stopping new submissions",
					zap.Error(err))
			}

		case out.Attempts == 0:
			// Cancelled before the first attempt; not a file failure.

		default:
			stats.Failed++
			log.Error("transfer failed",
				zap.String("source", out.SourceIdentity),
				zap.String("destination", out.DestinationKey),
				zap.Int("attempts", out.Attempts),
				zap.Error(out.Err))
		}
	}

	return fatal
}

// transferOne wraps the copier so the outcome carries the source creation
// time forward into the ledger record.
func (o *Orchestrator) transferOne(ctx context.Context, desc ObjectDescriptor) Outcome {
	if o.cfg.DryRun {
		o.log.Info("dry run: would transfer",
			zap.String("source", desc.SourceIdentity),
			zap.String("destination", desc.DestinationKey),
			zap.Int64("bytes", desc.Size))
		return Outcome{
			DestinationKey:   desc.DestinationKey,
			SourceIdentity:   desc.SourceIdentity,
			Succeeded:        true,
			BytesTransferred: desc.Size,
			Attempts:         1,
			sourceCreatedAt:  desc.CreatedAt,
		}
	}

	out := o.copier.Copy(ctx, desc)
	out.sourceCreatedAt = desc.CreatedAt
	return out
}

// flushState persists the ledger with the atomic-replace discipline,
// retrying briefly before declaring the failure fatal for this sync.
// The retry delay observes cancellation so shutdown is not held hostage
// by a broken state disk.
func (o *Orchestrator) flushState(ctx context.Context) error {
	var err error
	for i := 0; i < stateFlushAttempts; i++ {
		if err = o.store.Flush(); err == nil {
			return nil
		}
		if i == stateFlushAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("persist transfer state: %w", err)
		case <-time.After(stateFlushRetryDelay):
		}
	}
	return fmt.Errorf("persist transfer state: %w", err)
}
