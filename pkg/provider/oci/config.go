// Package oci implements the provider interface for Oracle Cloud
// Infrastructure Object Storage, the source side of the agent.
package oci

// Config configures an OCI Object Storage provider.
//
// Authentication uses the standard OCI config file (~/.oci/config) and
// profile, the same mechanism the OCI CLI uses. Instance-principal auth is
// out of scope: cost-report pulls run from operator machines or VMs with a
// provisioned API key.
type Config struct {
	// ConfigFile is the path to the OCI config file. "~" is expanded.
	// Default: ~/.oci/config.
	ConfigFile string

	// Profile is the profile name within the config file.
	// Default: DEFAULT.
	Profile string

	// Namespace is the Object Storage namespace. For Oracle-generated cost
	// and usage reports this is the well-known "bling" namespace.
	Namespace string

	// Bucket is the bucket name. For cost reports this is the tenancy
	// OCID.
	Bucket string

	// MaxKeys is the page size for List operations. Zero uses the
	// service default (1000).
	MaxKeys int
}

// DefaultMaxKeys is the default page size for List operations.
const DefaultMaxKeys = 1000

// ConfigError reports invalid provider configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "oci config: " + e.Field + ": " + e.Message
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Namespace == "" {
		return &ConfigError{Field: "Namespace", Message: "namespace is required"}
	}
	if c.Bucket == "" {
		return &ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}
	return nil
}
