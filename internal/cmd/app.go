package cmd

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/pileus-cloud/agent-oci-to-umbrella/internal/config"
	"github.com/pileus-cloud/agent-oci-to-umbrella/internal/observability"
	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/naming"
	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/provider/oci"
	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/provider/s3"
	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/state"
	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/transfer"
)

// app is the assembled agent: configuration, logger, both providers,
// ledger, and the transfer engine.
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	source *oci.Provider
	dest   *s3.Provider
	store  *state.Store
	orch   *transfer.Orchestrator
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := observability.NewLogger(observability.Options{
		Level:       cfg.Logging.Level,
		File:        cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		BackupCount: cfg.Logging.BackupCount,
	})
	if err != nil {
		return nil, exitError(ExitConfig, "Failed to configure logging", err)
	}
	return log, nil
}

func newSource(cfg *config.Config) (*oci.Provider, error) {
	return oci.New(oci.Config{
		ConfigFile: cfg.OCI.ConfigFile,
		Profile:    cfg.OCI.Profile,
		Namespace:  cfg.OCI.Namespace,
		Bucket:     cfg.OCI.Bucket,
	})
}

func newDestination(ctx context.Context, cfg *config.Config) (*s3.Provider, error) {
	return s3.New(ctx, s3.Config{
		Bucket:          cfg.S3.BucketName(),
		Prefix:          cfg.S3.KeyPrefix(),
		Region:          cfg.S3.Region,
		Endpoint:        cfg.S3.Endpoint,
		Profile:         cfg.S3.Profile,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		ForcePathStyle:  cfg.S3.ForcePathStyle,
		UploadPartSize:  cfg.Advanced.ChunkSizeBytes,
	})
}

// buildApp assembles everything a transferring command needs. dryRun
// overrides the configured advanced.dry_run when true.
func buildApp(ctx context.Context, cfg *config.Config, log *zap.Logger, dryRun bool) (*app, error) {
	source, err := newSource(cfg)
	if err != nil {
		return nil, exitError(ExitConnectivity, "Failed to initialize OCI client", err)
	}

	dest, err := newDestination(ctx, cfg)
	if err != nil {
		_ = source.Close()
		return nil, exitError(ExitConnectivity, "Failed to initialize S3 client", err)
	}

	store, err := state.Open(cfg.State.File)
	if err != nil {
		_ = source.Close()
		_ = dest.Close()
		var corrupt *state.CorruptError
		if errors.As(err, &corrupt) {
			return nil, exitError(ExitFailure, "State file is corrupt", err)
		}
		return nil, exitError(ExitConfig, "Failed to open state file", err)
	}

	namer, err := naming.New(cfg.Naming.DateFormat, cfg.Naming.Separator)
	if err != nil {
		return nil, exitError(ExitConfig, "Invalid naming configuration", err)
	}

	filter, err := transfer.NewFilter(cfg.Advanced.FilePattern, cfg.MaxFileSizeBytes())
	if err != nil {
		return nil, exitError(ExitConfig, "Invalid file pattern", err)
	}

	orch := transfer.New(source, dest, namer, filter, store, transfer.Config{
		SourcePrefix:   cfg.OCI.Prefix,
		Concurrency:    cfg.Agent.MaxConcurrentTransfers,
		ListRateLimit:  cfg.Agent.ListRateLimit,
		DryRun:         dryRun || cfg.Advanced.DryRun,
		VerifyChecksum: cfg.Advanced.ValidateChecksum,
		Retry:          cfg.RetryPolicy(),
	}, log)

	return &app{
		cfg:    cfg,
		log:    log,
		source: source,
		dest:   dest,
		store:  store,
		orch:   orch,
	}, nil
}

func (a *app) Close() {
	_ = a.source.Close()
	_ = a.dest.Close()
}
