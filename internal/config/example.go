package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// exampleDoc mirrors Config with yaml tags and human-friendly duration
// strings, so the rendered example reads the way operators write it.
type exampleDoc struct {
	OCI struct {
		ConfigFile string `yaml:"config_file"`
		Profile    string `yaml:"profile"`
		Namespace  string `yaml:"namespace"`
		Bucket     string `yaml:"bucket"`
		Prefix     string `yaml:"prefix"`
	} `yaml:"oci"`
	S3 struct {
		BucketPath      string `yaml:"bucket_path"`
		Region          string `yaml:"region"`
		AccessKeyID     string `yaml:"access_key_id"`
		SecretAccessKey string `yaml:"secret_access_key"`
	} `yaml:"s3"`
	Agent struct {
		PollInterval           string `yaml:"poll_interval"`
		LookbackDays           int    `yaml:"lookback_days"`
		MaxConcurrentTransfers int    `yaml:"max_concurrent_transfers"`
		StatusAddr             string `yaml:"status_addr"`
	} `yaml:"agent"`
	Retry struct {
		MaxRetries        int     `yaml:"max_retries"`
		InitialDelay      string  `yaml:"initial_delay"`
		BackoffMultiplier float64 `yaml:"backoff_multiplier"`
		MaxDelay          string  `yaml:"max_delay"`
	} `yaml:"retry"`
	Logging struct {
		Level       string `yaml:"level"`
		File        string `yaml:"file"`
		MaxSizeMB   int    `yaml:"max_size_mb"`
		BackupCount int    `yaml:"backup_count"`
	} `yaml:"logging"`
	State struct {
		File          string `yaml:"file"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"state"`
	Naming struct {
		DateFormat string `yaml:"date_format"`
		Separator  string `yaml:"separator"`
	} `yaml:"naming"`
	Advanced struct {
		FilePattern      string `yaml:"file_pattern"`
		ValidateFileSize bool   `yaml:"validate_file_size"`
		MaxFileSizeGB    int    `yaml:"max_file_size_gb"`
		ChunkSizeBytes   int64  `yaml:"chunk_size_bytes"`
		ValidateChecksum bool   `yaml:"validate_checksum"`
		DryRun           bool   `yaml:"dry_run"`
	} `yaml:"advanced"`
}

const exampleHeader = `# oracle-focus-agent configuration.
#
# Fill in oci.bucket (the tenancy OCID) and s3.bucket_path, then verify
# with: oracle-focus-agent test -c <this file>
#
# Durations accept Go syntax: 90s, 10m, 6h.
# naming.date_format is a Go reference-time layout.

`

// Example renders a complete default configuration as YAML.
func Example() (string, error) {
	var doc exampleDoc

	doc.OCI.ConfigFile = "~/.oci/config"
	doc.OCI.Profile = "DEFAULT"
	doc.OCI.Namespace = "bling"
	doc.OCI.Bucket = "ocid1.tenancy.oc1..aaaaexample"
	doc.OCI.Prefix = "FOCUS Reports/"

	doc.S3.BucketPath = "s3://my-cost-reports/oracle"
	doc.S3.Region = "us-east-1"

	doc.Agent.PollInterval = "10m"
	doc.Agent.LookbackDays = 0
	doc.Agent.MaxConcurrentTransfers = 3
	doc.Agent.StatusAddr = ""

	doc.Retry.MaxRetries = 3
	doc.Retry.InitialDelay = "5s"
	doc.Retry.BackoffMultiplier = 2
	doc.Retry.MaxDelay = "5m"

	doc.Logging.Level = "info"
	doc.Logging.File = ""
	doc.Logging.MaxSizeMB = 100
	doc.Logging.BackupCount = 5

	doc.State.File = "./state/state.json"
	doc.State.RetentionDays = 30

	doc.Naming.DateFormat = "2006-01-02"
	doc.Naming.Separator = "_"

	doc.Advanced.FilePattern = "*.csv.gz"
	doc.Advanced.ValidateFileSize = true
	doc.Advanced.MaxFileSizeGB = 5
	doc.Advanced.ChunkSizeBytes = 8 << 20
	doc.Advanced.ValidateChecksum = true

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("render example config: %w", err)
	}
	return exampleHeader + string(out), nil
}
