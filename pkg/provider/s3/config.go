// Package s3 implements the provider interface for AWS S3, the destination
// side of the agent.
package s3

// Config configures an S3 provider.
//
// Authentication follows the AWS SDK v2 default chain:
//  1. Explicit AccessKeyID/SecretAccessKey (if provided; discouraged)
//  2. Environment variables (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY)
//  3. Shared credentials/config files with optional profile
//  4. EC2 instance metadata / ECS task role / EKS IRSA
type Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string

	// Prefix is prepended to every destination key, with exactly one "/"
	// between prefix and key. Empty means the bucket root.
	Prefix string

	// Region is the AWS region. Defaults to us-east-1 when neither config
	// nor environment supplies one and no custom endpoint is set.
	Region string

	// Endpoint is a custom endpoint URL for S3-compatible stores (MinIO
	// and the like). Leave empty for AWS S3.
	Endpoint string

	// Profile is the AWS shared-config profile name. Empty uses the
	// default profile or environment credentials.
	Profile string

	// AccessKeyID and SecretAccessKey are explicit static credentials.
	// Both must be set together; they take precedence over the chain.
	AccessKeyID     string
	SecretAccessKey string

	// ForcePathStyle forces path-style URLs. Required for most
	// S3-compatible stores.
	ForcePathStyle bool

	// UploadPartSize is the part size for streaming uploads, in bytes.
	// This bounds the memory held per in-flight transfer. Zero uses
	// DefaultUploadPartSize.
	UploadPartSize int64

	// MaxKeys is the page size for List operations. Zero uses 1000.
	MaxKeys int
}

const (
	// DefaultMaxKeys is the default page size for List operations.
	DefaultMaxKeys = 1000

	// DefaultAWSRegion is the fallback region when none is configured.
	DefaultAWSRegion = "us-east-1"

	// DefaultUploadPartSize is the default streaming-upload part size.
	DefaultUploadPartSize int64 = 8 << 20 // 8 MiB
)

// ConfigError reports invalid provider configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "s3 config: " + e.Field + ": " + e.Message
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return &ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}
	if (c.AccessKeyID != "") != (c.SecretAccessKey != "") {
		return &ConfigError{
			Field:   "AccessKeyID/SecretAccessKey",
			Message: "access key ID and secret access key must be provided together",
		}
	}
	return nil
}
