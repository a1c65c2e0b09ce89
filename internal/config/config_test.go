package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
oci:
  bucket: ocid1.tenancy.oc1..aaaatest
s3:
  bucket_path: s3://cost-reports/oracle
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "DEFAULT", cfg.OCI.Profile)
	assert.Equal(t, "bling", cfg.OCI.Namespace)
	assert.Equal(t, "FOCUS Reports/", cfg.OCI.Prefix)
	assert.Equal(t, 10*time.Minute, cfg.Agent.PollInterval)
	assert.Equal(t, 3, cfg.Agent.MaxConcurrentTransfers)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Retry.InitialDelay)
	assert.Equal(t, 5*time.Minute, cfg.Retry.MaxDelay)
	assert.Equal(t, "2006-01-02", cfg.Naming.DateFormat)
	assert.Equal(t, "_", cfg.Naming.Separator)
	assert.Equal(t, "*.csv.gz", cfg.Advanced.FilePattern)
	assert.Equal(t, int64(8<<20), cfg.Advanced.ChunkSizeBytes)
	assert.True(t, cfg.Advanced.ValidateChecksum)
}

func TestLoadParsesDurations(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
agent:
  poll_interval: 6h
retry:
  initial_delay: 30s
  max_delay: 10m
`))
	require.NoError(t, err)
	assert.Equal(t, 6*time.Hour, cfg.Agent.PollInterval)
	assert.Equal(t, 30*time.Second, cfg.Retry.InitialDelay)
	assert.Equal(t, 10*time.Minute, cfg.Retry.MaxDelay)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestS3BucketPathParsing(t *testing.T) {
	tests := []struct {
		path   string
		bucket string
		prefix string
	}{
		{"s3://cost-reports/oracle", "cost-reports", "oracle"},
		{"s3://cost-reports/oracle/focus/", "cost-reports", "oracle/focus"},
		{"s3://cost-reports", "cost-reports", ""},
		{"not-a-url", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			s := S3Config{BucketPath: tt.path}
			assert.Equal(t, tt.bucket, s.BucketName())
			assert.Equal(t, tt.prefix, s.KeyPrefix())
		})
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
oci:
  bucket: not-an-ocid
s3:
  bucket_path: https://wrong
agent:
  poll_interval: 10s
  max_concurrent_transfers: 0
naming:
  separator: "/"
advanced:
  chunk_size_bytes: 16
`))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)

	var cerr *Error
	require.ErrorAs(t, err, &cerr)
	assert.GreaterOrEqual(t, len(cerr.Problems), 6)

	msg := err.Error()
	assert.Contains(t, msg, "oci.bucket")
	assert.Contains(t, msg, "s3.bucket_path")
	assert.Contains(t, msg, "poll_interval")
	assert.Contains(t, msg, "max_concurrent_transfers")
	assert.Contains(t, msg, "separator")
	assert.Contains(t, msg, "chunk_size_bytes")
}

func TestValidateCredentialPairing(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig+`
  access_key_id: AKIAEXAMPLE
`))
	require.NoError(t, err)
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be set together")
}

func TestRetryPolicyMapping(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	p := cfg.RetryPolicy()
	assert.Equal(t, 4, p.MaxAttempts, "3 retries = 4 attempts")
	assert.Equal(t, 5*time.Second, p.InitialDelay)
	assert.Equal(t, 2.0, p.BackoffMultiplier)
}

func TestMaxFileSizeBytes(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, int64(5)<<30, cfg.MaxFileSizeBytes())

	cfg.Advanced.ValidateFileSize = false
	assert.Equal(t, int64(0), cfg.MaxFileSizeBytes())
}

func TestExampleIsValidYAMLAndLoads(t *testing.T) {
	example, err := Example()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(example, "#"))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(example), &doc))

	cfg, err := Load(writeConfig(t, example))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "my-cost-reports", cfg.S3.BucketName())
}
