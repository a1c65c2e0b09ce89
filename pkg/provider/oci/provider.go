package oci

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/oracle/oci-go-sdk/v65/common"
	"github.com/oracle/oci-go-sdk/v65/objectstorage"

	"github.com/pileus-cloud/agent-oci-to-umbrella/pkg/provider"
)

// listFields requests the summary fields the transfer engine needs.
// timeCreated is not returned unless asked for explicitly.
const listFields = "name,size,etag,timeCreated"

// Provider implements provider.Provider backed by OCI Object Storage.
type Provider struct {
	client    objectstorage.ObjectStorageClient
	namespace string
	bucket    string
	maxKeys   int
}

var (
	_ provider.Provider     = (*Provider)(nil)
	_ provider.ObjectGetter = (*Provider)(nil)
)

// New creates an OCI Object Storage provider from the given configuration.
func New(cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	confProv := configurationProvider(cfg)
	client, err := objectstorage.NewObjectStorageClientWithConfigurationProvider(confProv)
	if err != nil {
		return nil, &provider.Error{
			Op:       "New",
			Provider: provider.TypeOCI,
			Bucket:   cfg.Bucket,
			Err:      err,
		}
	}

	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}

	return &Provider{
		client:    client,
		namespace: cfg.Namespace,
		bucket:    cfg.Bucket,
		maxKeys:   maxKeys,
	}, nil
}

func configurationProvider(cfg Config) common.ConfigurationProvider {
	path := cfg.ConfigFile
	if path == "" {
		return common.DefaultConfigProvider()
	}
	if strings.HasPrefix(path, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	profile := cfg.Profile
	if profile == "" {
		profile = "DEFAULT"
	}
	return common.CustomProfileConfigProvider(path, profile)
}

// List returns a page of objects with the given prefix.
//
// OCI paginates with a "start with" key rather than an opaque token; the
// NextStartWith value travels in ListResult.ContinuationToken.
func (p *Provider) List(ctx context.Context, opts provider.ListOptions) (*provider.ListResult, error) {
	limit := opts.MaxKeys
	if limit <= 0 || limit > p.maxKeys {
		limit = p.maxKeys
	}

	req := objectstorage.ListObjectsRequest{
		NamespaceName: common.String(p.namespace),
		BucketName:    common.String(p.bucket),
		Fields:        common.String(listFields),
		Limit:         common.Int(limit),
	}
	if opts.Prefix != "" {
		req.Prefix = common.String(opts.Prefix)
	}
	if opts.ContinuationToken != "" {
		req.Start = common.String(opts.ContinuationToken)
	}

	resp, err := p.client.ListObjects(ctx, req)
	if err != nil {
		return nil, p.wrapError("List", "", err)
	}

	objects := make([]provider.ObjectSummary, 0, len(resp.Objects))
	for _, obj := range resp.Objects {
		summary := provider.ObjectSummary{
			Key:  deref(obj.Name),
			ETag: deref(obj.Etag),
		}
		if obj.Size != nil {
			summary.Size = *obj.Size
		}
		if obj.TimeCreated != nil {
			summary.TimeCreated = obj.TimeCreated.Time
		}
		objects = append(objects, summary)
	}

	result := &provider.ListResult{Objects: objects}
	if resp.NextStartWith != nil && *resp.NextStartWith != "" {
		result.ContinuationToken = *resp.NextStartWith
		result.IsTruncated = true
	}
	return result, nil
}

// Head returns metadata for a single object.
func (p *Provider) Head(ctx context.Context, key string) (*provider.ObjectMeta, error) {
	resp, err := p.client.HeadObject(ctx, objectstorage.HeadObjectRequest{
		NamespaceName: common.String(p.namespace),
		BucketName:    common.String(p.bucket),
		ObjectName:    common.String(key),
	})
	if err != nil {
		return nil, p.wrapError("Head", key, err)
	}

	meta := &provider.ObjectMeta{
		ObjectSummary: provider.ObjectSummary{
			Key:  key,
			ETag: deref(resp.ETag),
		},
		ContentType: deref(resp.ContentType),
		ContentMD5:  deref(resp.ContentMd5),
	}
	if resp.ContentLength != nil {
		meta.Size = *resp.ContentLength
	}
	return meta, nil
}

// GetObject opens a streaming read of the object.
//
// The returned ContentMD5 is only present for objects uploaded in a single
// part; the copier skips checksum verification when it is empty.
func (p *Provider) GetObject(ctx context.Context, key string) (*provider.ObjectStream, error) {
	resp, err := p.client.GetObject(ctx, objectstorage.GetObjectRequest{
		NamespaceName: common.String(p.namespace),
		BucketName:    common.String(p.bucket),
		ObjectName:    common.String(key),
	})
	if err != nil {
		return nil, p.wrapError("GetObject", key, err)
	}

	stream := &provider.ObjectStream{
		Body:          resp.Content,
		ContentLength: -1,
		ContentMD5:    deref(resp.ContentMd5),
	}
	if resp.ContentLength != nil {
		stream.ContentLength = *resp.ContentLength
	}
	return stream, nil
}

// Close releases resources held by the provider. The OCI client has no
// explicit cleanup; this satisfies the interface.
func (p *Provider) Close() error {
	return nil
}

// wrapError maps OCI service errors onto the provider sentinel taxonomy.
func (p *Provider) wrapError(op, key string, err error) error {
	wrapped := &provider.Error{
		Op:       op,
		Provider: provider.TypeOCI,
		Bucket:   p.bucket,
		Key:      key,
		Err:      err,
	}

	if svcErr, ok := common.IsServiceError(err); ok {
		switch svcErr.GetHTTPStatusCode() {
		case 404:
			if svcErr.GetCode() == "BucketNotFound" {
				wrapped.Err = provider.ErrBucketNotFound
			} else {
				wrapped.Err = provider.ErrNotFound
			}
		case 401:
			wrapped.Err = provider.ErrInvalidCredentials
		case 403:
			wrapped.Err = provider.ErrAccessDenied
		case 429:
			wrapped.Err = provider.ErrThrottled
		case 500, 502, 503:
			wrapped.Err = provider.ErrUnavailable
		}
	}

	return wrapped
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
