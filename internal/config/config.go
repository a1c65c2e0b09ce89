// Package config loads and validates the agent's YAML configuration.
//
// Validation happens once at startup and failures are fatal: a daemon that
// would poll forever with a broken setup is worse than one that refuses to
// start.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/naming"
	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/transfer"
)

// Config is the complete agent configuration.
type Config struct {
	OCI      OCIConfig      `mapstructure:"oci"`
	S3       S3Config       `mapstructure:"s3"`
	Agent    AgentConfig    `mapstructure:"agent"`
	Retry    RetryConfig    `mapstructure:"retry"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	State    StateConfig    `mapstructure:"state"`
	Naming   NamingConfig   `mapstructure:"naming"`
	Advanced AdvancedConfig `mapstructure:"advanced"`
}

// OCIConfig is the source side: OCI Object Storage.
type OCIConfig struct {
	ConfigFile string `mapstructure:"config_file"`
	Profile    string `mapstructure:"profile"`
	Namespace  string `mapstructure:"namespace"`
	Bucket     string `mapstructure:"bucket"`
	Prefix     string `mapstructure:"prefix"`
}

// S3Config is the destination side. BucketPath is the s3://bucket/prefix
// form; explicit static credentials are optional (the default AWS chain
// applies when absent).
type S3Config struct {
	BucketPath      string `mapstructure:"bucket_path"`
	Region          string `mapstructure:"region"`
	Profile         string `mapstructure:"profile"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Endpoint        string `mapstructure:"endpoint"`
	ForcePathStyle  bool   `mapstructure:"force_path_style"`
}

// BucketName extracts the bucket from s3://bucket/prefix.
func (s S3Config) BucketName() string {
	if !strings.HasPrefix(s.BucketPath, "s3://") {
		return ""
	}
	return strings.SplitN(strings.TrimPrefix(s.BucketPath, "s3://"), "/", 2)[0]
}

// KeyPrefix extracts the key prefix from s3://bucket/prefix, without a
// trailing slash.
func (s S3Config) KeyPrefix() string {
	if !strings.HasPrefix(s.BucketPath, "s3://") {
		return ""
	}
	parts := strings.SplitN(strings.TrimPrefix(s.BucketPath, "s3://"), "/", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSuffix(parts[1], "/")
}

// AgentConfig controls the polling loop.
type AgentConfig struct {
	PollInterval           time.Duration `mapstructure:"poll_interval"`
	LookbackDays           int           `mapstructure:"lookback_days"`
	MaxConcurrentTransfers int           `mapstructure:"max_concurrent_transfers"`
	ListRateLimit          float64       `mapstructure:"list_rate_limit"`
	StatusAddr             string        `mapstructure:"status_addr"`
}

// RetryConfig controls per-file retry. MaxRetries counts retries after
// the first attempt.
type RetryConfig struct {
	MaxRetries        int           `mapstructure:"max_retries"`
	InitialDelay      time.Duration `mapstructure:"initial_delay"`
	BackoffMultiplier float64       `mapstructure:"backoff_multiplier"`
	MaxDelay          time.Duration `mapstructure:"max_delay"`
}

// LoggingConfig controls log output. When File is set, logs go there as
// JSON with size-based rotation; otherwise to stderr.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	File        string `mapstructure:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	BackupCount int    `mapstructure:"backup_count"`
}

// StateConfig controls the transfer ledger.
type StateConfig struct {
	File          string `mapstructure:"file"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// NamingConfig controls destination key construction. DateFormat is a Go
// reference-time layout (e.g. "2006-01-02").
type NamingConfig struct {
	DateFormat string `mapstructure:"date_format"`
	Separator  string `mapstructure:"separator"`
}

// AdvancedConfig holds the knobs most deployments leave alone.
type AdvancedConfig struct {
	FilePattern      string `mapstructure:"file_pattern"`
	ValidateFileSize bool   `mapstructure:"validate_file_size"`
	MaxFileSizeGB    int    `mapstructure:"max_file_size_gb"`
	ChunkSizeBytes   int64  `mapstructure:"chunk_size_bytes"`
	ValidateChecksum bool   `mapstructure:"validate_checksum"`
	DryRun           bool   `mapstructure:"dry_run"`
}

// Error is a fatal configuration error: one message per problem found.
type Error struct {
	Problems []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid configuration:\n  - %s", strings.Join(e.Problems, "\n  - "))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("oci.config_file", "~/.oci/config")
	v.SetDefault("oci.profile", "DEFAULT")
	v.SetDefault("oci.namespace", "bling")
	v.SetDefault("oci.prefix", "FOCUS Reports/")

	v.SetDefault("s3.region", "us-east-1")

	v.SetDefault("agent.poll_interval", "10m")
	v.SetDefault("agent.lookback_days", 0)
	v.SetDefault("agent.max_concurrent_transfers", 3)
	v.SetDefault("agent.list_rate_limit", 0)

	v.SetDefault("retry.max_retries", 3)
	v.SetDefault("retry.initial_delay", "5s")
	v.SetDefault("retry.backoff_multiplier", 2.0)
	v.SetDefault("retry.max_delay", "5m")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.backup_count", 5)

	v.SetDefault("state.file", "./state/state.json")
	v.SetDefault("state.retention_days", 30)

	v.SetDefault("naming.date_format", "2006-01-02")
	v.SetDefault("naming.separator", "_")

	v.SetDefault("advanced.file_pattern", "*.csv.gz")
	v.SetDefault("advanced.validate_file_size", true)
	v.SetDefault("advanced.max_file_size_gb", 5)
	v.SetDefault("advanced.chunk_size_bytes", 8<<20)
	v.SetDefault("advanced.validate_checksum", true)
	v.SetDefault("advanced.dry_run", false)
}

// Load reads and decodes the YAML file at path, applies defaults, and
// expands ~ in filesystem paths. It does not validate; call Validate.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
	))); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	cfg.OCI.ConfigFile = expandHome(cfg.OCI.ConfigFile)
	cfg.State.File = expandHome(cfg.State.File)
	cfg.Logging.File = expandHome(cfg.Logging.File)
	return &cfg, nil
}

// Validate collects every problem rather than stopping at the first, so
// the operator fixes the file in one round.
func (c *Config) Validate() error {
	var problems []string

	if c.OCI.Namespace == "" {
		problems = append(problems, "oci.namespace is required")
	}
	if c.OCI.Bucket == "" {
		problems = append(problems, "oci.bucket is required")
	} else if !strings.HasPrefix(c.OCI.Bucket, "ocid1.tenancy.") {
		problems = append(problems, "oci.bucket must be the tenancy OCID (cost reports live in a bucket named after it, starting with 'ocid1.tenancy.')")
	}

	if c.S3.BucketPath == "" {
		problems = append(problems, "s3.bucket_path is required")
	} else if !strings.HasPrefix(c.S3.BucketPath, "s3://") {
		problems = append(problems, "s3.bucket_path must start with 's3://'")
	} else if c.S3.BucketName() == "" {
		problems = append(problems, fmt.Sprintf("s3.bucket_path %q has no bucket name", c.S3.BucketPath))
	}
	if (c.S3.AccessKeyID == "") != (c.S3.SecretAccessKey == "") {
		problems = append(problems, "s3.access_key_id and s3.secret_access_key must be set together")
	}

	if c.Agent.PollInterval < time.Minute {
		problems = append(problems, fmt.Sprintf("agent.poll_interval must be at least 1m, got %s", c.Agent.PollInterval))
	}
	if c.Agent.LookbackDays < 0 {
		problems = append(problems, "agent.lookback_days must be >= 0")
	}
	if c.Agent.MaxConcurrentTransfers < 1 {
		problems = append(problems, "agent.max_concurrent_transfers must be at least 1")
	}
	if c.Agent.ListRateLimit < 0 {
		problems = append(problems, "agent.list_rate_limit must be >= 0")
	}

	if c.Retry.MaxRetries < 0 {
		problems = append(problems, "retry.max_retries must be >= 0")
	}
	if c.Retry.BackoffMultiplier < 1 {
		problems = append(problems, "retry.backoff_multiplier must be >= 1")
	}

	if c.State.File == "" {
		problems = append(problems, "state.file is required")
	}
	if c.State.RetentionDays < 0 {
		problems = append(problems, "state.retention_days must be >= 0")
	}

	if _, err := naming.New(c.Naming.DateFormat, c.Naming.Separator); err != nil {
		problems = append(problems, err.Error())
	}

	if c.Advanced.FilePattern == "" {
		problems = append(problems, "advanced.file_pattern is required")
	} else if !doublestar.ValidatePattern(c.Advanced.FilePattern) {
		problems = append(problems, fmt.Sprintf("advanced.file_pattern %q is not a valid glob", c.Advanced.FilePattern))
	}
	if c.Advanced.ValidateFileSize && c.Advanced.MaxFileSizeGB < 1 {
		problems = append(problems, "advanced.max_file_size_gb must be at least 1")
	}
	if c.Advanced.ChunkSizeBytes < 1024 {
		problems = append(problems, "advanced.chunk_size_bytes must be at least 1024")
	}

	if len(problems) > 0 {
		return &Error{Problems: problems}
	}
	return nil
}

// RetryPolicy maps the retry section onto the transfer engine's policy.
// MaxRetries counts retries, MaxAttempts counts tries.
func (c *Config) RetryPolicy() transfer.RetryPolicy {
	return transfer.RetryPolicy{
		MaxAttempts:       c.Retry.MaxRetries + 1,
		InitialDelay:      c.Retry.InitialDelay,
		BackoffMultiplier: c.Retry.BackoffMultiplier,
		MaxDelay:          c.Retry.MaxDelay,
	}
}

// MaxFileSizeBytes returns the size cap in bytes, zero when size
// validation is disabled.
func (c *Config) MaxFileSizeBytes() int64 {
	if !c.Advanced.ValidateFileSize {
		return 0
	}
	return int64(c.Advanced.MaxFileSizeGB) << 30
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
